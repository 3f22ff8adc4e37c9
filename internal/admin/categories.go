package admin

import (
	"errors"
	"net/http"
	"strconv"

	"catalog-admin/internal/catalog"
	"catalog-admin/internal/forms"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type categoriesPage struct {
	layout
	Categories []catalog.Category
	Error      string
}

type categoryFormPage struct {
	layout
	Editing bool
	Action  string
	Form    forms.CategoryForm
	Message string
	Field   string
}

func (s *Server) listCategories(c *gin.Context) {
	page := categoriesPage{layout: s.newLayout(c, "Categories", "categories")}
	page.Live = true
	page.LiveURL = "/events?view=" + viewCategories

	wait, cancel := s.pageContext(c)
	defer cancel()

	categories, err := s.catalog.Categories(wait)

	status := http.StatusOK
	switch {
	case err == nil, servingStale(err):
		page.Categories = categories
	case stillLoading(c, wait, err):
		page.Loading = true
	default:
		s.logFailure(c, "load categories", err)
		page.Error = failureMessage(err, "Something went wrong")
		status = http.StatusBadGateway
	}

	c.HTML(status, "categories.tmpl", page)
}

func (s *Server) newCategory(c *gin.Context) {
	s.renderCategoryForm(c, http.StatusOK, categoryFormPage{Action: "/categories"})
}

func (s *Server) createCategory(c *gin.Context) {
	page := categoryFormPage{Action: "/categories"}
	if err := c.ShouldBindWith(&page.Form, binding.Form); err != nil {
		page.Message = "Invalid form submission"
		s.renderCategoryForm(c, http.StatusBadRequest, page)
		return
	}

	category, err := page.Form.Category(0)
	if s.categoryRejected(c, &page, err) {
		return
	}

	if _, err := s.catalog.CreateCategory(c.Request.Context(), category); err != nil {
		s.logFailure(c, "create category", err)
		page.Message = failureMessage(err, "Failed to create category")
		s.renderCategoryForm(c, http.StatusBadGateway, page)
		return
	}

	s.flash(c, flashSuccess, "Category created successfully")
	s.redirect(c, "/categories")
}

func (s *Server) editCategory(c *gin.Context) {
	id, ok := pathID(c)
	category, found := catalog.Category{}, false
	if ok {
		category, found = s.findCategory(c, id)
	}
	if !found {
		s.renderMessage(c, http.StatusNotFound, "Category not found", "The requested category does not exist.", "/categories")
		return
	}

	s.renderCategoryForm(c, http.StatusOK, categoryFormPage{
		Editing: true,
		Action:  "/categories/" + strconv.FormatInt(id, 10),
		Form:    forms.FromCategory(category),
	})
}

func (s *Server) updateCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		s.renderMessage(c, http.StatusNotFound, "Category not found", "The requested category does not exist.", "/categories")
		return
	}
	page := categoryFormPage{Editing: true, Action: "/categories/" + strconv.FormatInt(id, 10)}

	if err := c.ShouldBindWith(&page.Form, binding.Form); err != nil {
		page.Message = "Invalid form submission"
		s.renderCategoryForm(c, http.StatusBadRequest, page)
		return
	}

	category, err := page.Form.Category(id)
	if s.categoryRejected(c, &page, err) {
		return
	}

	if _, err := s.catalog.UpdateCategory(c.Request.Context(), category); err != nil {
		s.logFailure(c, "update category", err)
		page.Message = failureMessage(err, "Failed to update category")
		s.renderCategoryForm(c, http.StatusBadGateway, page)
		return
	}

	s.flash(c, flashSuccess, "Category updated successfully")
	s.redirect(c, "/categories")
}

func (s *Server) confirmDeleteCategory(c *gin.Context) {
	id, ok := pathID(c)
	category, found := catalog.Category{}, false
	if ok {
		category, found = s.findCategory(c, id)
	}
	if !found {
		s.renderMessage(c, http.StatusNotFound, "Category not found", "The requested category does not exist.", "/categories")
		return
	}

	c.HTML(http.StatusOK, "confirm_delete.tmpl", confirmPage{
		layout:    s.newLayout(c, "Delete Category", "categories"),
		Name:      category.Name,
		Action:    "/categories/" + strconv.FormatInt(id, 10) + "/delete",
		CancelURL: "/categories",
	})
}

func (s *Server) deleteCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		s.flash(c, flashError, "Failed to delete category")
		s.redirect(c, "/categories")
		return
	}

	if err := s.catalog.DeleteCategory(c.Request.Context(), id); err != nil {
		s.logFailure(c, "delete category", err)
		s.flash(c, flashError, failureMessage(err, "Failed to delete category"))
		s.redirect(c, "/categories")
		return
	}

	s.flash(c, flashSuccess, "Category deleted successfully")
	s.redirect(c, "/categories")
}

func (s *Server) findCategory(c *gin.Context, id int64) (catalog.Category, bool) {
	categories, err := s.catalog.Categories(c.Request.Context())
	if err != nil {
		s.logFailure(c, "load categories", err)
		return catalog.Category{}, false
	}
	for _, cat := range categories {
		if cat.ID == id {
			return cat, true
		}
	}
	return catalog.Category{}, false
}

func (s *Server) categoryRejected(c *gin.Context, page *categoryFormPage, err error) bool {
	if err == nil {
		return false
	}

	var vErr *forms.ValidationError
	if errors.As(err, &vErr) {
		page.Message = vErr.Message
		page.Field = vErr.Field
	} else {
		page.Message = err.Error()
	}
	s.renderCategoryForm(c, http.StatusUnprocessableEntity, *page)
	return true
}

func (s *Server) renderCategoryForm(c *gin.Context, status int, page categoryFormPage) {
	title := "Create New Category"
	if page.Editing {
		title = "Edit Category"
	}
	page.layout = s.newLayout(c, title, "categories")
	c.HTML(status, "category_form.tmpl", page)
}
