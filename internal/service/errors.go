package service

import "errors"

var (
	ErrConfirmationRequired = errors.New("deletion must be confirmed")
	ErrFormClosed           = errors.New("document form is not open")
	ErrFormBusy             = errors.New("document form is being submitted")
	ErrUnknownDocument      = errors.New("document is not in the current list")
)

// User-facing alert and notice texts.
const (
	AlertCreateFailed = "Erreur lors de l'ajout du document."
	AlertUpdateFailed = "Erreur lors de la modification du document."
	AlertGeneric      = "Une erreur est survenue"
	NoticeUpdated     = "Document modifié avec succès !"
)
