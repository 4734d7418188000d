package validation

var messages = map[string]map[Rule]string{
	FieldName: {
		TooShort: "Le nom du document doit contenir au moins 2 caractères.",
		TooLong:  "Le nom du document ne peut pas dépasser 500 caractères.",
		Invalid:  "Le nom du document est invalide.",
	},
	FieldFormat: {
		TooShort: "Le format du document doit contenir au moins 2 caractères.",
		TooLong:  "Le format du document ne peut pas dépasser 30 caractères.",
		Invalid:  "Le format du document est invalide.",
	},
	FieldType: {
		Required: "Veuillez sélectionner un type de doc",
		Invalid:  "Ce type de document n'existe pas.",
	},
	FieldFile: {
		Required: "Le fichier est requis",
		Invalid:  "Le fichier doit être valide",
	},
	FieldTypeNew: {
		Required:  "Le nom du type est requis",
		Duplicate: "Ce type existe déjà",
	},
}

// UnknownType is the error reported when the selected type does not resolve
// to a confirmed document type.
func UnknownType() *FieldError {
	return &FieldError{Field: FieldType, Rule: Invalid, Message: messages[FieldType][Invalid]}
}
