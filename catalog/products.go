// Package catalog wraps the product and category endpoints: the public
// browse surface plus the seller- and admin-facing management calls.
package catalog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/AYShukla05/smartkart-client/api"
)

// Product is the list shape served by /products/ and /products/my/.
type Product struct {
	ID           int64       `json:"id"`
	Name         string      `json:"name"`
	Price        api.Decimal `json:"price"`
	Stock        int         `json:"stock"`
	IsActive     bool        `json:"is_active"`
	Category     int64       `json:"category"`
	CategoryName string      `json:"category_name"`
	SellerID     int64       `json:"seller_id"`
	Thumbnail    string      `json:"thumbnail"`
}

// ProductImage is one gallery entry of a product.
type ProductImage struct {
	ID          int64  `json:"id"`
	ImageURL    string `json:"image_url"`
	IsThumbnail bool   `json:"is_thumbnail"`
}

// ProductDetail is the full shape served by /products/:id/ and /products/my/:id/.
type ProductDetail struct {
	ID           int64          `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Price        api.Decimal    `json:"price"`
	Stock        int            `json:"stock"`
	Category     int64          `json:"category"`
	CategoryName string         `json:"category_name"`
	IsActive     bool           `json:"is_active"`
	SellerID     int64          `json:"seller_id"`
	Images       []ProductImage `json:"images"`
	CreatedAt    string         `json:"created_at"`
	UpdatedAt    string         `json:"updated_at"`
}

// ProductRequest is the create/update payload for a seller's product.
type ProductRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Category    int64   `json:"category"`
	IsActive    bool    `json:"is_active"`
}

// PresignedUpload is the response of the image presign endpoint: a one-shot
// upload URL on the object store, and the durable URL to save afterwards.
type PresignedUpload struct {
	UploadURL string `json:"upload_url"`
	FileURL   string `json:"file_url"`
}

// Client calls the catalog endpoints. Uploads go straight to object storage
// with the raw httpClient; since that origin is outside the API base, the
// authorizing transport never attaches the bearer credential to them.
type Client struct {
	api        *api.Client
	httpClient *http.Client
}

// NewClient creates a catalog Client. httpClient may be nil when image
// uploads are not used.
func NewClient(apiClient *api.Client, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{api: apiClient, httpClient: httpClient}
}

// PublicList fetches all active products.
func (c *Client) PublicList(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := c.api.Get(ctx, "/products/", &products); err != nil {
		return nil, err
	}
	return products, nil
}

// PublicDetail fetches a single active product.
func (c *Client) PublicDetail(ctx context.Context, id int64) (*ProductDetail, error) {
	var detail ProductDetail
	if err := c.api.Get(ctx, fmt.Sprintf("/products/%d/", id), &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// MyProducts fetches every product owned by the current seller.
func (c *Client) MyProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := c.api.Get(ctx, "/products/my/", &products); err != nil {
		return nil, err
	}
	return products, nil
}

// MyProduct fetches one of the current seller's products for editing.
func (c *Client) MyProduct(ctx context.Context, id int64) (*ProductDetail, error) {
	var detail ProductDetail
	if err := c.api.Get(ctx, fmt.Sprintf("/products/my/%d/", id), &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create adds a product to the seller's catalog.
func (c *Client) Create(ctx context.Context, data ProductRequest) (*ProductDetail, error) {
	var detail ProductDetail
	if err := c.api.Post(ctx, "/products/my/", data, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Update modifies an existing product.
func (c *Client) Update(ctx context.Context, id int64, data ProductRequest) (*ProductDetail, error) {
	var detail ProductDetail
	if err := c.api.Patch(ctx, fmt.Sprintf("/products/my/%d/", id), data, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Delete removes a product.
func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.api.Delete(ctx, fmt.Sprintf("/products/my/%d/", id))
}

// PresignImage requests a one-shot PUT URL for an image upload.
func (c *Client) PresignImage(ctx context.Context, productID int64, fileName string) (*PresignedUpload, error) {
	var presigned PresignedUpload
	err := c.api.Post(ctx, fmt.Sprintf("/products/my/%d/images/presign/", productID),
		map[string]string{"file_name": fileName}, &presigned)
	if err != nil {
		return nil, err
	}
	return &presigned, nil
}

// UploadImage PUTs an already-encoded webp payload to the presigned URL.
func (c *Client) UploadImage(ctx context.Context, uploadURL string, image []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(image))
	if err != nil {
		return fmt.Errorf("[Client.UploadImage] build request: %w", err)
	}
	req.Header.Set("Content-Type", "image/webp")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", api.ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("[Client.UploadImage] storage responded %d", resp.StatusCode)
	}
	return nil
}

// SaveImageURL records the uploaded file's durable URL against the product.
func (c *Client) SaveImageURL(ctx context.Context, productID int64, imageURL string) (*ProductImage, error) {
	var image ProductImage
	err := c.api.Post(ctx, fmt.Sprintf("/products/my/%d/images/", productID),
		map[string]string{"image_url": imageURL}, &image)
	if err != nil {
		return nil, err
	}
	return &image, nil
}

// SetThumbnail marks an image as the product's thumbnail.
func (c *Client) SetThumbnail(ctx context.Context, productID, imageID int64) error {
	return c.api.Patch(ctx, fmt.Sprintf("/products/my/%d/images/%d/thumbnail/", productID, imageID),
		struct{}{}, nil)
}

// DeleteImage removes an image from the product and the object store.
func (c *Client) DeleteImage(ctx context.Context, productID, imageID int64) error {
	return c.api.Delete(ctx, fmt.Sprintf("/products/my/%d/images/%d/", productID, imageID))
}
