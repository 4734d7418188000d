package handler

import (
	"errors"
	"mime/multipart"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"kankou/internal/model"
	"kankou/internal/service"
	"kankou/internal/upload"
	"kankou/internal/view"
)

// Form field names posted by the document form.
const (
	fieldName           = "doc_name"
	fieldTypeID         = "doc_type_id"
	fieldFormat         = "doc_format"
	fieldFormatExplicit = "format_explicit"
	fieldContent        = "doc_content"
	fieldFile           = "file"
	fieldTouched        = "touched"
	fieldConfirm        = "confirm"
)

// NewDocument opens an empty create form.
func NewDocument(opts view.Options) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := pageFromCtx(c)
		page.OpenCreate()
		return render(c, page, opts, fiber.StatusOK)
	}
}

// EditDocument opens the form prefilled with the document.
func EditDocument(opts view.Options) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := pageFromCtx(c)
		if err := page.OpenEdit(paramID(c)); err != nil {
			return notFound(err)
		}
		return render(c, page, opts, fiber.StatusOK)
	}
}

// CreateDocument submits the create form.
func CreateDocument(opts view.Options) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := pageFromCtx(c)
		form := page.Form()
		if s := form.Snapshot(); s.State == service.FormClosed || s.Editing {
			page.OpenCreate()
		}
		return submit(c, page, opts)
	}
}

// UpdateDocument submits the edit form of the document.
func UpdateDocument(opts view.Options) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := pageFromCtx(c)
		id := paramID(c)
		if s := page.Form().Snapshot(); s.State == service.FormClosed || !s.Editing || s.TargetID != id {
			if err := page.OpenEdit(id); err != nil {
				return notFound(err)
			}
		}
		return submit(c, page, opts)
	}
}

func submit(c *fiber.Ctx, page *service.Page, opts view.Options) error {
	if err := applyForm(c, page.Form()); err != nil {
		return err
	}

	_, err := page.SubmitForm(c.UserContext())
	switch {
	case err == nil:
		return redirectHome(c)
	case service.IsValidation(err):
		return render(c, page, opts, fiber.StatusUnprocessableEntity)
	case errors.Is(err, service.ErrFormBusy):
		return render(c, page, opts, fiber.StatusConflict)
	default:
		return render(c, page, opts, fiber.StatusBadGateway)
	}
}

// ValidateForm applies the posted inputs, marks the touched fields and returns
// their messages as a JSON object keyed by field name.
func ValidateForm() fiber.Handler {
	return func(c *fiber.Ctx) error {
		form := pageFromCtx(c).Form()
		if !form.IsOpen() {
			return writeError(c, fiber.StatusConflict, "FORM_CLOSED", "no form is open")
		}
		if err := applyForm(c, form); err != nil {
			return err
		}

		msgs, err := form.Touch(formValues(c, fieldTouched)...)
		switch {
		case errors.Is(err, service.ErrFormBusy):
			return writeError(c, fiber.StatusConflict, "FORM_BUSY", "form is being submitted")
		case err != nil:
			return writeError(c, fiber.StatusConflict, "FORM_CLOSED", "no form is open")
		}
		return c.JSON(msgs)
	}
}

// applyForm copies the posted inputs into the form. The file goes first so
// that a format the user picked explicitly overrides the one derived from it.
func applyForm(c *fiber.Ctx, form *service.DocumentForm) error {
	current := form.Snapshot()
	fields := service.FormFields{
		Name:    formValue(c, fieldName),
		TypeID:  formValue(c, fieldTypeID),
		Content: formValue(c, fieldContent),
	}
	if current.Editing {
		fields.Content = current.Content
	}
	if err := form.SetFields(fields); err != nil {
		return formError(err)
	}

	fileSent := false
	if fh, err := c.FormFile(fieldFile); err == nil && fh.Filename != "" {
		p, err := readUpload(fh)
		if err != nil {
			return err
		}
		if err := form.SetFile(p); err != nil {
			return formError(err)
		}
		fileSent = true
	}

	if format := formValue(c, fieldFormat); format != "" && (!fileSent || formValue(c, fieldFormatExplicit) == "1") {
		if err := form.SetFormat(format); err != nil {
			return formError(err)
		}
	}
	return nil
}

func readUpload(fh *multipart.FileHeader) (*upload.Pending, error) {
	p, err := upload.FromFileHeader(fh)
	if errors.Is(err, upload.ErrTooLarge) {
		return nil, fiber.ErrRequestEntityTooLarge
	}
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return p, nil
}

// AskDelete shows the delete confirmation dialog.
func AskDelete(opts view.Options) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := pageFromCtx(c)
		if err := page.AskDelete(paramID(c)); err != nil {
			return notFound(err)
		}
		return render(c, page, opts, fiber.StatusOK)
	}
}

// DeleteDocument deletes the document once confirm=yes is posted. Without the
// confirmation the dialog is shown instead.
func DeleteDocument() fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := pageFromCtx(c)
		id := paramID(c)

		err := page.DeleteDocument(c.UserContext(), id, c.FormValue(fieldConfirm) == "yes")
		if errors.Is(err, service.ErrConfirmationRequired) {
			return c.Redirect("/documents/"+url.PathEscape(string(id))+"/delete", fiber.StatusSeeOther)
		}
		// API failures surface as the page alert.
		return redirectHome(c)
	}
}

func paramID(c *fiber.Ctx) model.ID {
	return model.ID(utils.CopyString(c.Params("id")))
}

func notFound(err error) error {
	if errors.Is(err, service.ErrUnknownDocument) {
		return fiber.NewError(fiber.StatusNotFound, "document not found")
	}
	return err
}

func formError(err error) error {
	if errors.Is(err, service.ErrFormBusy) {
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	if errors.Is(err, service.ErrFormClosed) {
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	return err
}

// formValues returns every value posted under key.
func formValues(c *fiber.Ctx, key string) []string {
	if mf, err := c.MultipartForm(); err == nil {
		return append([]string(nil), mf.Value[key]...)
	}
	var out []string
	for _, v := range c.Context().PostArgs().PeekMulti(key) {
		out = append(out, string(v))
	}
	return out
}
