package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"kankou/internal/model"
	"kankou/internal/repository"
	"kankou/internal/service"
	"kankou/internal/view"
)

// render writes the full page of the current session, consuming its flash messages.
func render(c *fiber.Ctx, page *service.Page, opts view.Options, status int) error {
	alert, notice := page.TakeFlash()
	vm := view.NewPage(page.Snapshot(), alert, notice, opts)
	return c.Status(status).Render(view.TemplateIndex, vm, view.LayoutMain)
}

func redirectHome(c *fiber.Ctx) error {
	return c.Redirect("/", fiber.StatusSeeOther)
}

// formValue copies the value out of the request buffer so it can outlive the request.
func formValue(c *fiber.Ctx, key string) string {
	return utils.CopyString(c.FormValue(key))
}

// Index renders the page as it stands.
func Index(opts view.Options) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return render(c, pageFromCtx(c), opts, fiber.StatusOK)
	}
}

// Search runs the search described by the query string, then renders the page.
// A failed search keeps the previous results and shows an alert.
func Search(opts view.Options) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := pageFromCtx(c)
		q := repository.SearchQuery{
			Query:  utils.CopyString(c.Query("query")),
			TypeID: model.ID(utils.CopyString(c.Query("type"))),
		}
		_ = page.Search(c.UserContext(), q)
		return render(c, page, opts, fiber.StatusOK)
	}
}

// CloseModal closes whichever dialog is open and drops unsaved form input.
func CloseModal() fiber.Handler {
	return func(c *fiber.Ctx) error {
		pageFromCtx(c).CloseModal()
		return redirectHome(c)
	}
}
