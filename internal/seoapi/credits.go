package seoapi

import "context"

// Credits returns the account's remaining credit balance.
func (c *Client) Credits(ctx context.Context) (int, error) {
	var resp struct {
		Balance int `json:"balance"`
	}
	if err := c.postJSON(ctx, "/v1/credits/balance", struct{}{}, &resp); err != nil {
		return 0, err
	}
	return resp.Balance, nil
}

// Consume deducts credits for one run unit. An insufficient balance comes
// back as ErrInsufficientCredits, never as a generic failure.
func (c *Client) Consume(ctx context.Context, mode string, amount int) error {
	payload := struct {
		Mode   string `json:"mode"`
		Amount int    `json:"amount"`
	}{Mode: mode, Amount: amount}
	return c.postJSON(ctx, "/v1/credits/consume", payload, nil)
}
