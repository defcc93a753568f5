package payment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.pilab.hu/selfcare/domain"
)

func TestRenderRedirectForm(t *testing.T) {
	sess := &domain.PaymentSession{
		FormTarget: "https://www.payfast.co.za/eng/process",
		FormFields: map[string]string{
			"merchant_id": "10000100",
			"amount":      "50.00",
			"item_name":   `Account payment <&">`,
		},
	}

	page, err := RenderRedirectForm(sess)
	require.NoError(t, err)

	assert.Contains(t, page, `method="post" action="https://www.payfast.co.za/eng/process"`)
	assert.Contains(t, page, `name="merchant_id" value="10000100"`)
	assert.Contains(t, page, "getElementById(\"pay\").submit()")
	assert.NotContains(t, page, `<&">`, "field values must be escaped")

	// Fields render in name order regardless of map iteration.
	amountAt := strings.Index(page, `name="amount"`)
	itemAt := strings.Index(page, `name="item_name"`)
	merchantAt := strings.Index(page, `name="merchant_id"`)
	assert.True(t, amountAt < itemAt && itemAt < merchantAt)
}
