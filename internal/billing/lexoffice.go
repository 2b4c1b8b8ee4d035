package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/buchungsbutler/voiceagent/internal/models"
)

// LexofficeClient creates finalized invoices in a Lexoffice account.
type LexofficeClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewLexofficeClient(baseURL string) *LexofficeClient {
	return &LexofficeClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type lexAddress struct {
	Name        string `json:"name"`
	Street      string `json:"street,omitempty"`
	Zip         string `json:"zip,omitempty"`
	City        string `json:"city,omitempty"`
	CountryCode string `json:"countryCode"`
}

type lexUnitPrice struct {
	Currency          string  `json:"currency"`
	NetAmount         float64 `json:"netAmount"`
	TaxRatePercentage float64 `json:"taxRatePercentage"`
}

type lexLineItem struct {
	Type      string       `json:"type"`
	Name      string       `json:"name"`
	Quantity  float64      `json:"quantity"`
	UnitName  string       `json:"unitName"`
	UnitPrice lexUnitPrice `json:"unitPrice"`
}

type lexInvoice struct {
	VoucherDate string        `json:"voucherDate"`
	Address     lexAddress    `json:"address"`
	LineItems   []lexLineItem `json:"lineItems"`
	TotalPrice  struct {
		Currency string `json:"currency"`
	} `json:"totalPrice"`
	TaxConditions struct {
		TaxType string `json:"taxType"`
	} `json:"taxConditions"`
	ShippingConditions struct {
		ShippingType    string `json:"shippingType"`
		ShippingDate    string `json:"shippingDate"`
		ShippingEndDate string `json:"shippingEndDate"`
	} `json:"shippingConditions"`
	Title        string `json:"title"`
	Introduction string `json:"introduction"`
}

const lexDateLayout = "2006-01-02T15:04:05.000-07:00"

func buildLexofficeInvoice(inv *models.Invoice, t *models.Tenant) lexInvoice {
	taxPercent := inv.TaxRate * 100
	body := lexInvoice{
		VoucherDate: inv.CreatedAt.Format(lexDateLayout),
		Address: lexAddress{
			Name:        t.CompanyName,
			Street:      strings.TrimSpace(t.Street + " " + t.HouseNumber),
			Zip:         t.PostalCode,
			City:        t.City,
			CountryCode: "DE",
		},
		Title:        "Rechnung " + inv.InvoiceNumber,
		Introduction: fmt.Sprintf("Abrechnungszeitraum %s bis %s", inv.PeriodStart.Format("02.01.2006"), inv.PeriodEnd.Format("02.01.2006")),
	}
	body.TotalPrice.Currency = "EUR"
	body.TaxConditions.TaxType = "net"
	body.ShippingConditions.ShippingType = "serviceperiod"
	body.ShippingConditions.ShippingDate = inv.PeriodStart.Format(lexDateLayout)
	body.ShippingConditions.ShippingEndDate = inv.PeriodEnd.Format(lexDateLayout)

	if inv.MonthlyFee > 0 {
		body.LineItems = append(body.LineItems, lexLineItem{
			Type: "custom", Name: "Monatliche Grundgebühr", Quantity: 1, UnitName: "Monat",
			UnitPrice: lexUnitPrice{Currency: "EUR", NetAmount: inv.MonthlyFee, TaxRatePercentage: taxPercent},
		})
	}
	if inv.BillableMinutes > 0 {
		body.LineItems = append(body.LineItems, lexLineItem{
			Type: "custom", Name: "Gesprächsminuten", Quantity: inv.BillableMinutes, UnitName: "Minute",
			UnitPrice: lexUnitPrice{Currency: "EUR", NetAmount: inv.PricePerMinute, TaxRatePercentage: taxPercent},
		})
	}
	if len(body.LineItems) == 0 {
		body.LineItems = append(body.LineItems, lexLineItem{
			Type: "custom", Name: "Voice Agent Nutzung", Quantity: 1, UnitName: "Monat",
			UnitPrice: lexUnitPrice{Currency: "EUR", TaxRatePercentage: taxPercent},
		})
	}
	return body
}

// CreateInvoice posts the invoice and returns the Lexoffice resource id.
func (c *LexofficeClient) CreateInvoice(ctx context.Context, apiKey string, inv *models.Invoice, t *models.Tenant) (string, error) {
	payload, err := json.Marshal(buildLexofficeInvoice(inv, t))
	if err != nil {
		return "", fmt.Errorf("marshal lexoffice invoice: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/invoices?finalize=true", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("lexoffice request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("lexoffice returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode lexoffice response: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("lexoffice response without id")
	}
	return out.ID, nil
}
