package service

import (
	"Storefront/internal/api/dto"
	"Storefront/internal/model"
	"Storefront/internal/pkg/consts"
	"Storefront/internal/pkg/es"
	"Storefront/internal/repository"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeSearch 记录索引写入，按名称子串召回
type fakeSearch struct {
	docs    map[string]*es.ProductES
	failing bool
}

func (f *fakeSearch) SearchProducts(_ context.Context, query string, from, size int) ([]*es.ProductES, int64, error) {
	if f.failing {
		return nil, 0, errors.New("cluster unavailable")
	}
	hits := make([]*es.ProductES, 0)
	for _, doc := range f.docs {
		if strings.Contains(strings.ToLower(doc.Name), strings.ToLower(query)) {
			hits = append(hits, doc)
		}
	}
	return hits, int64(len(hits)), nil
}

func (f *fakeSearch) IndexProduct(_ context.Context, product *es.ProductES, _ int64) error {
	f.docs[product.ID] = product
	return nil
}

func (f *fakeSearch) DeleteProduct(_ context.Context, id string) error {
	delete(f.docs, id)
	return nil
}

type productFixture struct {
	db      *gorm.DB
	mr      *miniredis.Miniredis
	svc     ProductService
	objects *memObjectStore
	search  *fakeSearch
}

func newProductFixture(t *testing.T) *productFixture {
	t.Helper()
	mr := useMiniredis(t)
	db := newTestDB(t)
	objects := newMemObjectStore()
	search := &fakeSearch{docs: map[string]*es.ProductES{}}
	svc := NewProductService(repository.NewProductRepo(db), repository.NewUserRepo(db), objects, search, true, platformAdminEmail)

	seedUser(t, db, "boss", model.RoleAdmin)
	seedUser(t, db, "m1", model.RoleAdmin)
	seedUser(t, db, "m2", model.RoleAdmin)
	seedUser(t, db, "u1", model.RoleNormal)
	return &productFixture{db: db, mr: mr, svc: svc, objects: objects, search: search}
}

func uploads(t *testing.T, n int) []*dto.UploadFile {
	t.Helper()
	files := make([]*dto.UploadFile, 0, n)
	for i := 0; i < n; i++ {
		files = append(files, &dto.UploadFile{Filename: "p.png", Reader: bytes.NewReader(pngImage(t, 1200, 900))})
	}
	return files
}

func TestCreateProductStoresImagesAndIndexes(t *testing.T) {
	f := newProductFixture(t)
	ctx := context.Background()

	product, err := f.svc.CreateProduct(ctx, "m1", &dto.ProductFormDTO{Name: "Desk Lamp", Type: "home", Price: 19.5}, uploads(t, 2))
	require.NoError(t, err)
	assert.Len(t, product.ID, 26)
	assert.Equal(t, "m1", product.OwnerID)
	require.Len(t, product.Images, 2)
	assert.Equal(t, 1, product.Images[0].Slot)
	assert.True(t, strings.HasPrefix(product.Images[0].ImageURL, "http://cdn.test/bucket/products/"))
	assert.Contains(t, product.Images[0].ThumbnailURL, "_thumb")
	assert.Equal(t, 4, f.objects.count())
	assert.Contains(t, f.search.docs, product.ID)

	_, err = f.svc.CreateProduct(ctx, "m1", &dto.ProductFormDTO{Name: "One", Type: "home"}, uploads(t, 1))
	assert.ErrorIs(t, err, ErrProductImagesRequired)
	_, err = f.svc.CreateProduct(ctx, "u1", &dto.ProductFormDTO{Name: "Nope", Type: "home"}, uploads(t, 2))
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.CreateProduct(ctx, "m1", &dto.ProductFormDTO{Type: "home"}, uploads(t, 2))
	assert.ErrorIs(t, err, ErrParamInvalid)

	bad := []*dto.UploadFile{uploads(t, 1)[0], {Filename: "x.txt", Reader: bytes.NewReader([]byte("not an image"))}}
	_, err = f.svc.CreateProduct(ctx, "m1", &dto.ProductFormDTO{Name: "Half", Type: "home"}, bad)
	assert.ErrorIs(t, err, ErrFileNotSupported)
	// 失败时清理已上传的对象
	assert.Equal(t, 4, f.objects.count())
}

func TestUpdateAndDeleteProductPermissions(t *testing.T) {
	f := newProductFixture(t)
	ctx := context.Background()
	product, err := f.svc.CreateProduct(ctx, "m1", &dto.ProductFormDTO{Name: "Chair", Type: "home", Price: 40}, uploads(t, 2))
	require.NoError(t, err)
	oldSlot2 := strings.TrimPrefix(product.Images[1].ImageURL, "http://cdn.test/bucket/")

	form := &dto.ProductFormDTO{Name: "Oak Chair", Type: "home", Price: 45}
	_, err = f.svc.UpdateProduct(ctx, product.ID, "m2", form, nil)
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := f.svc.UpdateProduct(ctx, product.ID, "m1", form, map[int]*dto.UploadFile{2: uploads(t, 1)[0], 3: uploads(t, 1)[0]})
	require.NoError(t, err)
	assert.Equal(t, "Oak Chair", updated.Name)
	assert.Equal(t, 45.0, updated.Price)
	require.Len(t, updated.Images, 3)
	assert.False(t, f.objects.has(oldSlot2))
	assert.Equal(t, 6, f.objects.count())
	assert.Equal(t, "Oak Chair", f.search.docs[product.ID].Name)

	_, err = f.svc.UpdateProduct(ctx, product.ID, "m1", form, map[int]*dto.UploadFile{5: uploads(t, 1)[0]})
	assert.ErrorIs(t, err, ErrParamInvalid)

	// 平台管理员可以删除任意商品
	assert.ErrorIs(t, f.svc.DeleteProduct(ctx, product.ID, "m2"), ErrForbidden)
	require.NoError(t, f.svc.DeleteProduct(ctx, product.ID, "boss"))
	assert.Equal(t, 0, f.objects.count())
	assert.NotContains(t, f.search.docs, product.ID)
	assert.ErrorIs(t, f.svc.DeleteProduct(ctx, product.ID, "boss"), ErrProductNotFound)
}

func TestProductPageCountsViews(t *testing.T) {
	f := newProductFixture(t)
	ctx := context.Background()
	product, err := f.svc.CreateProduct(ctx, "m1", &dto.ProductFormDTO{Name: "Vase", Type: "decor"}, uploads(t, 2))
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&model.Product{}).Where("id = ?", product.ID).Update("views", 10).Error)

	page, err := f.svc.GetProductPage(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(11), page.Views)
	page, err = f.svc.GetProductPage(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(12), page.Views)
	assert.Equal(t, int64(12), page.Product.Views)
	assert.Equal(t, int64(0), page.Contacts)
	assert.Equal(t, "m1", page.Merchant.ID)

	assert.True(t, f.mr.Exists(consts.ProductViewKey+product.ID))
	members, err := f.mr.Members(consts.ProductViewDirtyKey)
	require.NoError(t, err)
	assert.Equal(t, []string{product.ID}, members)

	_, err = f.svc.GetProductPage(ctx, "missing")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestListingsSimilarAndStorePage(t *testing.T) {
	f := newProductFixture(t)
	ctx := context.Background()
	lamp, err := f.svc.CreateProduct(ctx, "m1", &dto.ProductFormDTO{Name: "Lamp", Type: "home"}, uploads(t, 2))
	require.NoError(t, err)
	_, err = f.svc.CreateProduct(ctx, "m1", &dto.ProductFormDTO{Name: "Rug", Type: "home"}, uploads(t, 2))
	require.NoError(t, err)
	_, err = f.svc.CreateProduct(ctx, "m2", &dto.ProductFormDTO{Name: "Bike", Type: "sport"}, uploads(t, 2))
	require.NoError(t, err)

	all, err := f.svc.ListProducts(ctx, 1, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	second, err := f.svc.ListProducts(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, second, 1)

	mine, err := f.svc.ListMyProducts(ctx, "m1")
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	everything, err := f.svc.ListMyProducts(ctx, "boss")
	require.NoError(t, err)
	assert.Len(t, everything, 3)
	_, err = f.svc.ListMyProducts(ctx, "u1")
	assert.ErrorIs(t, err, ErrForbidden)

	similar, err := f.svc.SimilarProducts(ctx, lamp.ID)
	require.NoError(t, err)
	require.Len(t, similar, 1)
	assert.Equal(t, "Rug", similar[0].Name)

	store, err := f.svc.StorePage(ctx, "m1")
	require.NoError(t, err)
	assert.Len(t, store.Products, 2)
	assert.Equal(t, "m1", store.Merchant.ID)
	_, err = f.svc.StorePage(ctx, "u1")
	assert.ErrorIs(t, err, ErrMerchantNotFound)
}

func TestSearchProducts(t *testing.T) {
	f := newProductFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateProduct(ctx, "m1", &dto.ProductFormDTO{Name: "Brass Lamp", Type: "home"}, uploads(t, 2))
	require.NoError(t, err)
	_, err = f.svc.CreateProduct(ctx, "m1", &dto.ProductFormDTO{Name: "Rug", Type: "home"}, uploads(t, 2))
	require.NoError(t, err)

	result, err := f.svc.SearchProducts(ctx, &dto.SearchProductsDTO{Query: "lamp"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Total)
	require.Len(t, result.Products, 1)
	assert.Equal(t, "Brass Lamp", result.Products[0].Name)

	f.search.failing = true
	_, err = f.svc.SearchProducts(ctx, &dto.SearchProductsDTO{Query: "lamp"})
	assert.ErrorIs(t, err, ErrSearchUnavailable)

	offline := NewProductService(repository.NewProductRepo(f.db), repository.NewUserRepo(f.db), f.objects, nil, false, "")
	_, err = offline.SearchProducts(ctx, &dto.SearchProductsDTO{Query: "lamp"})
	assert.ErrorIs(t, err, ErrSearchUnavailable)
}
