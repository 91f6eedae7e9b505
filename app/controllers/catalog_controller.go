package controllers

import (
	"bufio"
	"net/http"

	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/pkg/ctx"
)

const maxImageBytes = 5 << 20

type CategoryController struct {
	catalog *services.CatalogService
}

func NewCategoryController(s *services.CatalogService) *CategoryController {
	return &CategoryController{catalog: s}
}

func (cc *CategoryController) Index(c *ctx.Context) {
	cats, err := cc.catalog.Categories(c.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(cats)
}

func (cc *CategoryController) Show(c *ctx.Context) {
	cat, err := cc.catalog.CategoryBySlug(c.Context(), c.Param("slug"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(cat)
}

func (cc *CategoryController) Store(c *ctx.Context) {
	var in services.CategoryInput
	if !c.BindJSON(&in) {
		return
	}
	cat, err := cc.catalog.CreateCategory(c.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(cat)
}

func (cc *CategoryController) Update(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	var in services.CategoryInput
	if !c.BindJSON(&in) {
		return
	}
	cat, err := cc.catalog.UpdateCategory(c.Context(), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(cat)
}

func (cc *CategoryController) Destroy(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	if err := cc.catalog.DeleteCategory(c.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Message("Category removed")
}

type ProductController struct {
	catalog *services.CatalogService
}

func NewProductController(s *services.CatalogService) *ProductController {
	return &ProductController{catalog: s}
}

// Index lists products. Query: category (id or slug), search, page, limit.
func (pc *ProductController) Index(c *ctx.Context) {
	page, err := pc.catalog.Products(c.Context(), services.ProductQuery{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Page:     c.QueryInt("page", 1),
		Limit:    c.QueryInt("limit", 0),
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(page)
}

func (pc *ProductController) Show(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	p, err := pc.catalog.FindProductByID(c.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(p)
}

func (pc *ProductController) LowStock(c *ctx.Context) {
	products, err := pc.catalog.LowStock(c.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(products)
}

func (pc *ProductController) Store(c *ctx.Context) {
	var in services.ProductInput
	if !c.BindJSON(&in) {
		return
	}
	p, err := pc.catalog.CreateProduct(c.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(p)
}

func (pc *ProductController) Update(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	var in services.ProductInput
	if !c.BindJSON(&in) {
		return
	}
	p, err := pc.catalog.UpdateProduct(c.Context(), caller(c), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(p)
}

func (pc *ProductController) Destroy(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	if err := pc.catalog.DeleteProduct(c.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Message("Product removed")
}

func (pc *ProductController) UpdateStock(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	var in services.StockInput
	if !c.BindJSON(&in) {
		return
	}
	p, err := pc.catalog.SetStock(c.Context(), caller(c), id, *in.Stock)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(p)
}

// UploadImage accepts a multipart form with an "image" file field.
func (pc *ProductController) UploadImage(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}

	c.R.Body = http.MaxBytesReader(c.W, c.R.Body, maxImageBytes+1024)
	file, header, err := c.R.FormFile("image")
	if err != nil {
		c.ValidationError(map[string]string{"image": "The image field is required."})
		return
	}
	defer file.Close()
	if header.Size > maxImageBytes {
		c.ValidationError(map[string]string{"image": "The image must not be larger than 5MB."})
		return
	}

	br := bufio.NewReader(file)
	head, _ := br.Peek(512)
	p, err := pc.catalog.UploadImage(c.Context(), id, header.Filename, http.DetectContentType(head), br)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(p)
}
