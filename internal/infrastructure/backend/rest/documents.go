package rest

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/AymaneHaj/Share-In/internal/core/domain"
)

func (c *Client) Upload(ctx context.Context, req domain.UploadRequest) (*domain.Document, error) {
	files := []formFile{{field: "file_recto", file: req.Primary}}
	if req.Secondary != nil && !req.Secondary.Empty() {
		files = append(files, formFile{field: "file_verso", file: *req.Secondary})
	}

	var doc domain.Document
	err := c.do(ctx, call{
		operation: "upload",
		method:    http.MethodPost,
		path:      "/documents/upload",
		body:      multipartBody(map[string]string{"document_type": string(req.DocumentType)}, files),
		once:      true,
		validate:  c.validator.Document,
	}, &doc)
	if err != nil {
		return nil, err
	}
	if doc.DocumentType == "" {
		doc.DocumentType = req.DocumentType
	}
	return &doc, nil
}

func (c *Client) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	var doc domain.Document
	err := c.do(ctx, call{
		operation: "get_document",
		method:    http.MethodGet,
		path:      "/documents/" + url.PathEscape(id),
		// each poll tick is its own attempt
		once:     true,
		validate: c.validator.Document,
	}, &doc)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

type documentEnvelope struct {
	Message  string          `json:"message"`
	Document domain.Document `json:"document"`
}

func (c *Client) ConfirmDocument(ctx context.Context, id string, data domain.ExtractedData) (*domain.Document, error) {
	var envelope documentEnvelope
	err := c.do(ctx, call{
		operation: "confirm",
		method:    http.MethodPut,
		path:      "/documents/" + url.PathEscape(id) + "/confirm",
		body:      jsonBody(data),
		once:      true,
		validate:  c.validator.Envelope("document"),
	}, &envelope)
	if err != nil {
		return nil, err
	}
	return &envelope.Document, nil
}

func (c *Client) FieldSchema(ctx context.Context) (domain.Schema, error) {
	var raw map[string][]domain.FieldGroup
	err := c.do(ctx, call{
		operation: "field_schema",
		method:    http.MethodGet,
		path:      "/documents/schema",
		validate:  c.validator.FieldSchema,
	}, &raw)
	if err != nil {
		return nil, err
	}

	schema := make(domain.Schema, len(raw))
	for key, groups := range raw {
		docType := domain.DocumentType(key)
		if !docType.Valid() {
			c.logger.Warn("schema_type_dropped", "document_type", key)
			continue
		}
		schema[docType] = groups
	}
	return schema, nil
}

func (c *Client) ListDocuments(ctx context.Context, page, perPage int) (*domain.DocumentPage, error) {
	var result domain.DocumentPage
	err := c.do(ctx, call{
		operation: "list_documents",
		method:    http.MethodGet,
		path:      "/documents",
		query:     pageQuery(page, perPage),
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func pageQuery(page, perPage int) url.Values {
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		query.Set("per_page", strconv.Itoa(perPage))
	}
	return query
}

// messageResponse is returned by endpoints that only acknowledge.
type messageResponse struct {
	Message string `json:"message"`
}
