package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peerapong/invoice-reader/internal/engine"
)

func TestRecordSchema_ValidRecord(t *testing.T) {
	rec := engine.Record{
		Platform:    "TikTokAds",
		InvoiceID:   "THTT2025060001",
		InvoiceType: "Attributed",
		LineNumber:  1,
		Amount:      "18550.72",
		Description: "pk|40109|..._[ST]|2089P22",
		Agency:      "pk",
		ProjectID:   "40109",
		CampaignID:  "2089P22",
	}
	b, err := json.Marshal(rec)
	require.NoError(t, err)

	assert.NoError(t, validateAgainstSchema(buildRecordJSONSchema(), b))
}

func TestRecordSchema_NegativeAmount(t *testing.T) {
	rec := engine.Record{
		Platform:    "GoogleAds",
		InvoiceID:   "5297692790",
		InvoiceType: "Adjustment",
		LineNumber:  1,
		Amount:      "-6284.42",
		Description: "GoogleAds Adjustment invoice total",
	}
	b, err := json.Marshal(rec)
	require.NoError(t, err)

	assert.NoError(t, validateAgainstSchema(buildRecordJSONSchema(), b))
}

func TestRecordSchema_RejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"unknown platform": `{"platform":"Telegram","invoiceId":"x","invoiceType":"Plain","lineNumber":1,"amount":"1.00","description":""}`,
		"zero line number": `{"platform":"MetaAds","invoiceId":"x","invoiceType":"Plain","lineNumber":0,"amount":"1.00","description":""}`,
		"unscaled amount":  `{"platform":"MetaAds","invoiceId":"x","invoiceType":"Plain","lineNumber":1,"amount":"1200","description":""}`,
		"missing amount":   `{"platform":"MetaAds","invoiceId":"x","invoiceType":"Plain","lineNumber":1,"description":""}`,
		"extra field":      `{"platform":"MetaAds","invoiceId":"x","invoiceType":"Plain","lineNumber":1,"amount":"1.00","description":"","vat":"7%"}`,
	}
	for name, payload := range cases {
		assert.Error(t, validateAgainstSchema(buildRecordJSONSchema(), []byte(payload)), name)
	}
}
