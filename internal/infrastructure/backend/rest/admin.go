package rest

import (
	"context"
	"net/http"
	"net/url"

	"github.com/AymaneHaj/Share-In/internal/core/domain"
)

func (c *Client) Stats(ctx context.Context) (*domain.AdminStats, error) {
	var stats domain.AdminStats
	err := c.do(ctx, call{
		operation: "admin_stats",
		method:    http.MethodGet,
		path:      "/admin/stats",
	}, &stats)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) ListAllDocuments(ctx context.Context, page, perPage int, filter domain.DocumentFilter) (*domain.DocumentPage, error) {
	query := pageQuery(page, perPage)
	if filter.DocumentType != "" {
		query.Set("document_type", string(filter.DocumentType))
	}
	if filter.Status != "" {
		query.Set("status", string(filter.Status))
	}
	if filter.UserID != "" {
		query.Set("user_id", filter.UserID)
	}

	var result domain.DocumentPage
	err := c.do(ctx, call{
		operation: "admin_list_documents",
		method:    http.MethodGet,
		path:      "/admin/documents",
		query:     query,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetAnyDocument(ctx context.Context, id string) (*domain.Document, error) {
	var doc domain.Document
	err := c.do(ctx, call{
		operation: "admin_get_document",
		method:    http.MethodGet,
		path:      "/admin/documents/" + url.PathEscape(id),
		validate:  c.validator.Document,
	}, &doc)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *Client) UpdateDocument(ctx context.Context, id string, patch domain.DocumentPatch) (*domain.Document, error) {
	var envelope documentEnvelope
	err := c.do(ctx, call{
		operation: "admin_update_document",
		method:    http.MethodPut,
		path:      "/admin/documents/" + url.PathEscape(id),
		body:      jsonBody(patch),
		once:      true,
		validate:  c.validator.Envelope("document"),
	}, &envelope)
	if err != nil {
		return nil, err
	}
	return &envelope.Document, nil
}

func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	var ack messageResponse
	return c.do(ctx, call{
		operation: "admin_delete_document",
		method:    http.MethodDelete,
		path:      "/admin/documents/" + url.PathEscape(id),
		once:      true,
	}, &ack)
}

func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	var result struct {
		Users []domain.User `json:"users"`
	}
	err := c.do(ctx, call{
		operation: "admin_list_users",
		method:    http.MethodGet,
		path:      "/admin/users",
	}, &result)
	if err != nil {
		return nil, err
	}
	return result.Users, nil
}
