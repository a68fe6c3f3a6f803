package handler

import (
	"Storefront/internal/api/dto"
	"Storefront/internal/pkg/response"
	"Storefront/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

// 更新商品时按槽位上传，字段名 image1 ~ image4
const maxImageSlots = 4

type ProductHandler struct {
	productSvc service.ProductService
}

func NewProductHandler(productSvc service.ProductService) *ProductHandler {
	return &ProductHandler{productSvc: productSvc}
}

func (s *ProductHandler) CreateProduct(c *gin.Context) {
	var form dto.ProductFormDTO
	if err := c.ShouldBind(&form); err != nil {
		response.Error(c, err)
		return
	}
	multipartForm, err := c.MultipartForm()
	if err != nil {
		response.Error(c, service.ErrProductImagesRequired)
		return
	}

	var files openedFiles
	defer files.Close()
	images := make([]*dto.UploadFile, 0, len(multipartForm.File["images"]))
	for _, fh := range multipartForm.File["images"] {
		file, err := files.open(fh)
		if err != nil {
			response.Error(c, service.ErrParamInvalid)
			return
		}
		images = append(images, file)
	}

	product, err := s.productSvc.CreateProduct(c.Request.Context(), c.GetString("user_id"), &form, images)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, product)
}

func (s *ProductHandler) UpdateProduct(c *gin.Context) {
	var form dto.ProductFormDTO
	if err := c.ShouldBind(&form); err != nil {
		response.Error(c, err)
		return
	}

	var files openedFiles
	defer files.Close()
	images := make(map[int]*dto.UploadFile)
	for slot := 1; slot <= maxImageSlots; slot++ {
		file, err := files.optionalFile(c, "image"+strconv.Itoa(slot))
		if err != nil {
			response.Error(c, service.ErrParamInvalid)
			return
		}
		if file != nil {
			images[slot] = file
		}
	}

	product, err := s.productSvc.UpdateProduct(c.Request.Context(), c.Param("id"), c.GetString("user_id"), &form, images)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, product)
}

func (s *ProductHandler) DeleteProduct(c *gin.Context) {
	err := s.productSvc.DeleteProduct(c.Request.Context(), c.Param("id"), c.GetString("user_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *ProductHandler) ListProducts(c *gin.Context) {
	var req dto.ListProductsDTO
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	products, err := s.productSvc.ListProducts(c.Request.Context(), req.Page, req.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, products)
}

func (s *ProductHandler) ListMyProducts(c *gin.Context) {
	products, err := s.productSvc.ListMyProducts(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, products)
}

func (s *ProductHandler) GetProductPage(c *gin.Context) {
	page, err := s.productSvc.GetProductPage(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, page)
}

func (s *ProductHandler) SimilarProducts(c *gin.Context) {
	products, err := s.productSvc.SimilarProducts(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, products)
}

func (s *ProductHandler) StorePage(c *gin.Context) {
	page, err := s.productSvc.StorePage(c.Request.Context(), c.Param("merchant_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, page)
}

func (s *ProductHandler) SearchProducts(c *gin.Context) {
	var req dto.SearchProductsDTO
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	result, err := s.productSvc.SearchProducts(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
