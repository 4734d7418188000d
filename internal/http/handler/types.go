package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"kankou/internal/service"
	"kankou/internal/validation"
	"kankou/internal/view"
)

const fieldTypeName = "type_name"

// Types opens the type registry modal.
func Types(opts view.Options) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := pageFromCtx(c)
		page.OpenTypes()
		return render(c, page, opts, fiber.StatusOK)
	}
}

// AddType adds the posted type name. A rejected name is shown in the modal.
func AddType(opts view.Options) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := pageFromCtx(c)
		ensureTypesModal(page)

		err := page.AddType(c.UserContext(), formValue(c, fieldTypeName))
		var fe *validation.FieldError
		if errors.As(err, &fe) {
			return render(c, page, opts, fiber.StatusUnprocessableEntity)
		}
		return redirectHome(c)
	}
}

// RemoveType drops a type from the registry shown in this session.
func RemoveType() fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := pageFromCtx(c)
		ensureTypesModal(page)

		if !page.RemoveType(c.UserContext(), paramID(c)) {
			return fiber.NewError(fiber.StatusNotFound, "type not found")
		}
		return redirectHome(c)
	}
}

func ensureTypesModal(page *service.Page) {
	if page.Snapshot().Modal != service.ModalTypes {
		page.OpenTypes()
	}
}
