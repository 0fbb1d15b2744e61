package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ShopifyClient pushes committed catalog changes to the Shopify Admin
// GraphQL API. An unconfigured client (empty shop domain) reports disabled
// and every call becomes a no-op.
type ShopifyClient struct {
	shopDomain  string
	accessToken string
	httpClient  *http.Client
}

// NewShopifyClient creates a Shopify Admin API client
func NewShopifyClient(shopDomain, accessToken string) *ShopifyClient {
	return &ShopifyClient{
		shopDomain:  shopDomain,
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Enabled reports whether the client has credentials configured
func (c *ShopifyClient) Enabled() bool {
	return c.shopDomain != "" && c.accessToken != ""
}

type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors,omitempty"`
}

// ShopifyProductInput is the subset of ProductInput the sync uses
type ShopifyProductInput struct {
	Title           string   `json:"title"`
	Handle          string   `json:"handle,omitempty"`
	DescriptionHTML string   `json:"descriptionHtml,omitempty"`
	Status          string   `json:"status,omitempty"`
	Tags            []string `json:"tags,omitempty"`
}

// UpsertProduct creates or updates a product by handle, returning the
// Shopify product GID.
func (c *ShopifyClient) UpsertProduct(ctx context.Context, input ShopifyProductInput) (string, error) {
	const mutation = `
		mutation productSet($input: ProductSetInput!) {
			productSet(input: $input) {
				product { id }
				userErrors { field message }
			}
		}`

	raw, err := c.execute(ctx, mutation, map[string]interface{}{"input": input})
	if err != nil {
		return "", err
	}

	var resp struct {
		ProductSet struct {
			Product *struct {
				ID string `json:"id"`
			} `json:"product"`
			UserErrors []struct {
				Message string `json:"message"`
			} `json:"userErrors"`
		} `json:"productSet"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("failed to decode productSet response: %w", err)
	}
	if len(resp.ProductSet.UserErrors) > 0 {
		return "", fmt.Errorf("shopify rejected product: %s", resp.ProductSet.UserErrors[0].Message)
	}
	if resp.ProductSet.Product == nil {
		return "", fmt.Errorf("shopify returned no product")
	}
	return resp.ProductSet.Product.ID, nil
}

func (c *ShopifyClient) execute(ctx context.Context, query string, variables map[string]interface{}) (json.RawMessage, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("shopify client is not configured")
	}

	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("https://%s/admin/api/2024-07/graphql.json", c.shopDomain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("shopify request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("shopify returned status %d: %s", resp.StatusCode, string(data))
	}

	var gql graphqlResponse
	if err := json.Unmarshal(data, &gql); err != nil {
		return nil, fmt.Errorf("failed to decode shopify response: %w", err)
	}
	if len(gql.Errors) > 0 {
		return nil, fmt.Errorf("shopify graphql error: %s", gql.Errors[0].Message)
	}
	return gql.Data, nil
}
