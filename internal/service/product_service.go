package service

import (
	"Storefront/internal/api/dto"
	"Storefront/internal/model"
	"Storefront/internal/pkg/consts"
	"Storefront/internal/pkg/es"
	"Storefront/internal/pkg/redis"
	"Storefront/internal/pkg/util"
	"Storefront/internal/repository"
	"context"
	log "log/slog"
	"sort"

	"github.com/jinzhu/copier"
	"github.com/oklog/ulid/v2"
)

type ProductService interface {
	CreateProduct(ctx context.Context, ownerID string, form *dto.ProductFormDTO, images []*dto.UploadFile) (*dto.ProductDTO, error)
	UpdateProduct(ctx context.Context, id string, callerID string, form *dto.ProductFormDTO, images map[int]*dto.UploadFile) (*dto.ProductDTO, error)
	DeleteProduct(ctx context.Context, id string, callerID string) error
	ListProducts(ctx context.Context, page int, limit int) ([]*dto.ProductDTO, error)
	ListMyProducts(ctx context.Context, callerID string) ([]*dto.ProductDTO, error)
	GetProductPage(ctx context.Context, id string) (*dto.ProductPageDTO, error)
	SimilarProducts(ctx context.Context, id string) ([]*dto.ProductDTO, error)
	StorePage(ctx context.Context, merchantID string) (*dto.StorePageDTO, error)
	SearchProducts(ctx context.Context, req *dto.SearchProductsDTO) (*dto.SearchResultDTO, error)
}

const (
	minProductImages    = 2
	maxProductImages    = 4
	defaultProductLimit = 50
	maxProductLimit     = 100
	similarLimit        = 10
	defaultSearchSize   = 20
)

type ProductServiceImpl struct {
	productRepo        repository.ProductRepo
	userRepo           repository.UserRepo
	objects            ObjectStore
	search             es.ProductRepo
	syncIndex          bool
	platformAdminEmail string
}

// NewProductService search 为 nil 时搜索不可用；syncIndex 为 true 时写操作直接同步索引 (未启用 CDC 时)
func NewProductService(
	productRepo repository.ProductRepo,
	userRepo repository.UserRepo,
	objects ObjectStore,
	search es.ProductRepo,
	syncIndex bool,
	platformAdminEmail string,
) ProductService {
	return &ProductServiceImpl{
		productRepo:        productRepo,
		userRepo:           userRepo,
		objects:            objects,
		search:             search,
		syncIndex:          syncIndex,
		platformAdminEmail: util.NormalizeEmail(platformAdminEmail),
	}
}

func (s *ProductServiceImpl) CreateProduct(ctx context.Context, ownerID string, form *dto.ProductFormDTO, images []*dto.UploadFile) (*dto.ProductDTO, error) {
	if err := util.ValidateDTO(form); err != nil {
		return nil, ErrParamInvalid
	}
	owner, err := s.userRepo.GetUserById(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !owner.IsAdmin() {
		return nil, ErrForbidden
	}
	if len(images) < minProductImages {
		return nil, ErrProductImagesRequired
	}
	if len(images) > maxProductImages {
		return nil, ErrParamInvalid
	}

	product := &model.Product{
		ID:          ulid.Make().String(),
		OwnerID:     owner.ID,
		Name:        form.Name,
		Type:        form.Type,
		Price:       form.Price,
		Description: form.Description,
	}
	uploaded := make([]string, 0, len(images)*2)
	for i, file := range images {
		imageKey, thumbKey, err := storeProductImage(ctx, s.objects, file)
		if err != nil {
			removeObjects(ctx, s.objects, uploaded...)
			return nil, err
		}
		uploaded = append(uploaded, imageKey, thumbKey)
		product.Images = append(product.Images, model.ProductImage{
			ProductID:    product.ID,
			Slot:         i + 1,
			ImageURL:     imageKey,
			ThumbnailURL: thumbKey,
		})
	}

	if err = s.productRepo.CreateProduct(ctx, product); err != nil {
		removeObjects(ctx, s.objects, uploaded...)
		return nil, err
	}
	s.indexProduct(ctx, product)
	return s.toProductDTO(product)
}

// UpdateProduct images 以槽位 (1..4) 为键，只替换传入的槽位
func (s *ProductServiceImpl) UpdateProduct(ctx context.Context, id string, callerID string, form *dto.ProductFormDTO, images map[int]*dto.UploadFile) (*dto.ProductDTO, error) {
	if err := util.ValidateDTO(form); err != nil {
		return nil, ErrParamInvalid
	}
	product, err := s.editableProduct(ctx, id, callerID)
	if err != nil {
		return nil, err
	}

	previous := make(map[int]model.ProductImage, len(product.Images))
	for _, img := range product.Images {
		previous[img.Slot] = img
	}

	slots := make([]int, 0, len(images))
	for slot := range images {
		if slot < 1 || slot > maxProductImages {
			return nil, ErrParamInvalid
		}
		slots = append(slots, slot)
	}
	sort.Ints(slots)

	replaced := make([]*model.ProductImage, 0, len(slots))
	uploaded := make([]string, 0, len(slots)*2)
	stale := make([]string, 0, len(slots)*2)
	for _, slot := range slots {
		imageKey, thumbKey, err := storeProductImage(ctx, s.objects, images[slot])
		if err != nil {
			removeObjects(ctx, s.objects, uploaded...)
			return nil, err
		}
		uploaded = append(uploaded, imageKey, thumbKey)
		replaced = append(replaced, &model.ProductImage{
			ProductID:    product.ID,
			Slot:         slot,
			ImageURL:     imageKey,
			ThumbnailURL: thumbKey,
		})
		if old, ok := previous[slot]; ok {
			stale = append(stale, old.ImageURL, old.ThumbnailURL)
		}
	}

	product.Name = form.Name
	product.Type = form.Type
	product.Price = form.Price
	product.Description = form.Description
	if err = s.productRepo.UpdateProduct(ctx, product, replaced); err != nil {
		removeObjects(ctx, s.objects, uploaded...)
		return nil, err
	}
	removeObjects(ctx, s.objects, stale...)

	updated, err := s.productRepo.GetProductById(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrProductNotFound
	}
	s.indexProduct(ctx, updated)
	return s.toProductDTO(updated)
}

func (s *ProductServiceImpl) DeleteProduct(ctx context.Context, id string, callerID string) error {
	product, err := s.editableProduct(ctx, id, callerID)
	if err != nil {
		return err
	}
	if err = s.productRepo.DeleteProduct(ctx, product.ID); err != nil {
		return err
	}

	keys := make([]string, 0, len(product.Images)*2)
	for _, img := range product.Images {
		keys = append(keys, img.ImageURL, img.ThumbnailURL)
	}
	removeObjects(ctx, s.objects, keys...)
	_ = redis.DeleteKey(ctx, consts.ProductViewKey+product.ID)

	if s.syncIndex && s.search != nil {
		if err = s.search.DeleteProduct(ctx, product.ID); err != nil {
			log.WarnContext(ctx, "delete product index failed", "product_id", product.ID, "err", err)
		}
	}
	return nil
}

func (s *ProductServiceImpl) ListProducts(ctx context.Context, page int, limit int) ([]*dto.ProductDTO, error) {
	if limit <= 0 {
		limit = defaultProductLimit
	}
	if limit > maxProductLimit {
		limit = maxProductLimit
	}
	if page <= 0 {
		page = 1
	}
	products, err := s.productRepo.ListProducts(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	return s.toProductDTOs(products)
}

// ListMyProducts 平台管理员可见全部商品
func (s *ProductServiceImpl) ListMyProducts(ctx context.Context, callerID string) ([]*dto.ProductDTO, error) {
	caller, err := s.userRepo.GetUserById(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	ownerID := caller.ID
	if s.isPlatformAdmin(caller) {
		ownerID = ""
	}
	products, err := s.productRepo.ListProductsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.toProductDTOs(products)
}

// GetProductPage 浏览量先记到 Redis，由定时任务回写数据库
func (s *ProductServiceImpl) GetProductPage(ctx context.Context, id string) (*dto.ProductPageDTO, error) {
	product, err := s.productRepo.GetProductById(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	views := product.Views
	pending, err := redis.IncrWithDirty(ctx, consts.ProductViewKey+product.ID, consts.ProductViewDirtyKey, product.ID)
	if err != nil {
		log.WarnContext(ctx, "count product view failed", "product_id", product.ID, "err", err)
	} else {
		views += pending
	}

	merchant, err := s.userRepo.GetUserById(ctx, product.OwnerID)
	if err != nil {
		return nil, err
	}
	productDTO, err := s.toProductDTO(product)
	if err != nil {
		return nil, err
	}
	productDTO.Views = views

	return &dto.ProductPageDTO{
		Product:  productDTO,
		Merchant: s.toMerchantCard(merchant),
		Views:    views,
		Contacts: product.Inquiries,
	}, nil
}

func (s *ProductServiceImpl) SimilarProducts(ctx context.Context, id string) ([]*dto.ProductDTO, error) {
	product, err := s.productRepo.GetProductById(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	products, err := s.productRepo.ListSimilarProducts(ctx, product.Type, product.ID, similarLimit)
	if err != nil {
		return nil, err
	}
	return s.toProductDTOs(products)
}

func (s *ProductServiceImpl) StorePage(ctx context.Context, merchantID string) (*dto.StorePageDTO, error) {
	merchant, err := s.userRepo.GetUserById(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	if !merchant.IsAdmin() {
		return nil, ErrMerchantNotFound
	}
	products, err := s.productRepo.ListProductsByOwner(ctx, merchant.ID)
	if err != nil {
		return nil, err
	}
	list, err := s.toProductDTOs(products)
	if err != nil {
		return nil, err
	}
	return &dto.StorePageDTO{Merchant: s.toMerchantCard(merchant), Products: list}, nil
}

// SearchProducts 索引只负责召回 id，详情以数据库为准并保持命中顺序
func (s *ProductServiceImpl) SearchProducts(ctx context.Context, req *dto.SearchProductsDTO) (*dto.SearchResultDTO, error) {
	if s.search == nil {
		return nil, ErrSearchUnavailable
	}
	size := req.Size
	if size <= 0 || size > maxProductLimit {
		size = defaultSearchSize
	}
	from := req.From
	if from < 0 {
		from = 0
	}

	hits, total, err := s.search.SearchProducts(ctx, req.Query, from, size)
	if err != nil {
		log.ErrorContext(ctx, "search products failed", "query", req.Query, "err", err)
		return nil, ErrSearchUnavailable
	}
	ids := make([]string, 0, len(hits))
	for _, hit := range hits {
		ids = append(ids, hit.ID)
	}
	products, err := s.productRepo.GetProductsByIds(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	ordered := make([]*model.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}

	list, err := s.toProductDTOs(ordered)
	if err != nil {
		return nil, err
	}
	return &dto.SearchResultDTO{Total: total, Products: list}, nil
}

// editableProduct 商品所有者或平台管理员
func (s *ProductServiceImpl) editableProduct(ctx context.Context, id string, callerID string) (*model.Product, error) {
	product, err := s.productRepo.GetProductById(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if product.OwnerID == callerID {
		return product, nil
	}
	caller, err := s.userRepo.GetUserById(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if !s.isPlatformAdmin(caller) {
		return nil, ErrForbidden
	}
	return product, nil
}

func (s *ProductServiceImpl) isPlatformAdmin(user *model.User) bool {
	return s.platformAdminEmail != "" && user.IsAdmin() && user.Email == s.platformAdminEmail
}

func (s *ProductServiceImpl) indexProduct(ctx context.Context, product *model.Product) {
	if !s.syncIndex || s.search == nil {
		return
	}
	doc := &es.ProductES{}
	if err := copier.Copy(doc, product); err != nil {
		log.WarnContext(ctx, "copy product doc failed", "product_id", product.ID, "err", err)
		return
	}
	if err := s.search.IndexProduct(ctx, doc, product.UpdatedAt.UnixMilli()); err != nil {
		log.WarnContext(ctx, "index product failed", "product_id", product.ID, "err", err)
	}
}

func (s *ProductServiceImpl) toProductDTOs(products []*model.Product) ([]*dto.ProductDTO, error) {
	list := make([]*dto.ProductDTO, 0, len(products))
	for _, p := range products {
		item, err := s.toProductDTO(p)
		if err != nil {
			return nil, err
		}
		list = append(list, item)
	}
	return list, nil
}

func (s *ProductServiceImpl) toProductDTO(product *model.Product) (*dto.ProductDTO, error) {
	out := &dto.ProductDTO{}
	if err := copier.CopyWithOption(out, product, copier.Option{IgnoreEmpty: true}); err != nil {
		return nil, err
	}
	out.Images = make([]*dto.ProductImageDTO, 0, len(product.Images))
	for _, img := range product.Images {
		out.Images = append(out.Images, &dto.ProductImageDTO{
			Slot:         img.Slot,
			ImageURL:     s.objects.PublicURL(img.ImageURL),
			ThumbnailURL: s.objects.PublicURL(img.ThumbnailURL),
		})
	}
	return out, nil
}

func (s *ProductServiceImpl) toMerchantCard(merchant *model.User) *dto.MerchantCardDTO {
	if merchant == nil {
		return nil
	}
	photo := consts.DefaultAvatarURL
	if merchant.Photo != nil && *merchant.Photo != "" {
		photo = *merchant.Photo
	}
	return &dto.MerchantCardDTO{
		ID:            merchant.ID,
		Name:          merchant.Name,
		StoreName:     merchant.StoreName,
		Photo:         s.objects.PublicURL(photo),
		Location:      merchant.Location,
		AverageRating: merchant.AverageRating(),
		RatingsCount:  merchant.RatingsCount,
	}
}
