package backend

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/ariefcatur/go-storefront/internal/session"
)

type AdminLogin struct {
	Token string `json:"token"`
	Admin struct {
		ID    string `json:"_id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"admin"`
}

func (c *Client) AdminLogin(ctx context.Context, email, password string) (AdminLogin, error) {
	var out AdminLogin
	body := map[string]string{"email": email, "password": password}
	err := c.call(ctx, http.MethodPost, "/api/admin/login", body, &out)
	return out, err
}

func (c *Client) Users(ctx context.Context) ([]User, error) {
	var out []User
	err := c.callAs(ctx, session.AudienceAdmin, http.MethodGet, "/api/users", nil, &out)
	return out, err
}

func (c *Client) Contacts(ctx context.Context) ([]Contact, error) {
	var out struct {
		Messages []Contact `json:"messages"`
	}
	err := c.call(ctx, http.MethodGet, "/api/admin/contacts", nil, &out)
	return out.Messages, err
}

func (c *Client) DeleteContact(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/api/admin/contacts/"+url.PathEscape(id), nil, nil)
}

func (c *Client) SetContactReplied(ctx context.Context, id string, replied bool) error {
	body := map[string]bool{"replied": replied}
	return c.call(ctx, http.MethodPatch, "/api/admin/contacts/"+url.PathEscape(id)+"/replied", body, nil)
}

// ReplyContact asks the backend to email the customer and mark the message replied.
func (c *Client) ReplyContact(ctx context.Context, id, subject, body string) error {
	req := map[string]string{"subject": subject, "replyMessage": body}
	return c.call(ctx, http.MethodPost, "/api/admin/contacts/"+url.PathEscape(id)+"/reply", req, nil)
}

func (c *Client) SubmitContact(ctx context.Context, req ContactRequest) error {
	return c.call(ctx, http.MethodPost, "/api/contact", req, nil)
}

func (c *Client) OrdersSummary(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.call(ctx, http.MethodGet, "/api/admin/stats/orders-summary", nil, &out)
	return out, err
}

// ExportOrders downloads the server-rendered export. format is "csv" or
// "excel"; empty status or courier means no filter.
func (c *Client) ExportOrders(ctx context.Context, format, status, courier string) ([]byte, error) {
	q := url.Values{}
	q.Set("format", format)
	if status != "" {
		q.Set("status", status)
	}
	if courier != "" {
		q.Set("courier", courier)
	}
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	return c.raw(ctx, session.AudienceAdmin, http.MethodGet, "/api/admin/export/orders?"+q.Encode(), nil)
}
