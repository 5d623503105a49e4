package gateway

import (
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amineouhani/blanes-backend/pkg/config"
	"github.com/amineouhani/blanes-backend/pkg/db/models"
)

func testConfig() config.GatewayConfig {
	return config.GatewayConfig{
		ClientID:    "600001234",
		StoreKey:    "TEST_STORE_KEY",
		StoreType:   "3D_PAY_HOSTING",
		TranType:    "PreAuth",
		Currency:    "504",
		Language:    "fr",
		OkURL:       "https://example.com/payment/ok",
		FailURL:     "https://example.com/payment/fail",
		CallbackURL: "https://example.com/webhooks/gateway",
	}
}

func TestComputeHash_EscapesStructuralCharacters(t *testing.T) {
	plain := ComputeHash(map[string]string{"a": "value"}, "key")
	withPipe := ComputeHash(map[string]string{"a": `val|ue`}, "key")
	withBackslash := ComputeHash(map[string]string{"a": `val\ue`}, "key")

	assert.NotEqual(t, plain, withPipe)
	assert.NotEqual(t, plain, withBackslash)
	assert.NotEqual(t, withPipe, withBackslash)

	// A pipe inside a value must not collide with a field boundary.
	boundary := ComputeHash(map[string]string{"a": "x", "b": "y"}, "key")
	smuggled := ComputeHash(map[string]string{"a": "x|y", "b": ""}, "key")
	assert.NotEqual(t, boundary, smuggled)
}

func TestComputeHash_SortsCaseInsensitively(t *testing.T) {
	a := ComputeHash(map[string]string{"Beta": "2", "alpha": "1"}, "key")
	b := ComputeHash(map[string]string{"alpha": "1", "Beta": "2"}, "key")
	assert.Equal(t, a, b)
}

func TestPaymentForm_SignedAndComplete(t *testing.T) {
	adapter, err := NewAdapter(testConfig())
	require.NoError(t, err)

	city := "Casablanca"
	address := "12 rue des Fleurs"
	customer := &models.Customer{
		Name:    "Sara B",
		Email:   "sara@example.com",
		Phone:   "+212600000000",
		City:    &city,
		Address: &address,
	}
	form, err := adapter.PaymentForm("ORDER-AB123456", decimal.RequireFromString("210.50"), customer)
	require.NoError(t, err)

	assert.Equal(t, "ORDER-AB123456", form["oid"])
	assert.Equal(t, "210.50", form["amount"])
	assert.Equal(t, "ver3", form["hashAlgorithm"])
	assert.Equal(t, "UTF-8", form["encoding"])
	assert.Equal(t, "true", form["CallbackResponse"])
	assert.NotEmpty(t, form["rnd"])
	assert.NotEmpty(t, form["HASH"])

	assert.Equal(t, "+212600000000", form["tel"])
	assert.Equal(t, "Sara B", form["BillToName"])
	assert.Equal(t, "12 rue des Fleurs", form["BillToStreet1"])
	assert.Equal(t, "Casablanca", form["BillToCity"])
	for _, key := range []string{"BillToCompany", "BillToStateProv", "BillToPostalCode"} {
		_, present := form[key]
		assert.True(t, present, key)
	}

	// The signature covers everything except HASH and encoding.
	hashable := map[string]string{}
	for k, v := range form {
		if k == "HASH" || k == "encoding" {
			continue
		}
		hashable[k] = v
	}
	assert.Equal(t, ComputeHash(hashable, "TEST_STORE_KEY"), form["HASH"])
}

func TestPaymentForm_Validation(t *testing.T) {
	adapter, err := NewAdapter(testConfig())
	require.NoError(t, err)

	_, err = adapter.PaymentForm("", decimal.NewFromInt(10), nil)
	assert.Error(t, err)

	_, err = adapter.PaymentForm("ORDER-AB123456", decimal.Zero, nil)
	assert.Error(t, err)
}

func callbackForm(t *testing.T, storeKey string, overrides map[string]string) url.Values {
	t.Helper()
	params := map[string]string{
		"oid":            "ORDER-AB123456",
		"ProcReturnCode": "00",
		"Response":       "Approved",
		"TransId":        "25123ABCDEF",
		"AuthCode":       "123456",
		"amount":         "210.50",
		"EXTRA.TRXDATE":  "20260830 12:00:00",
	}
	for k, v := range overrides {
		params[k] = v
	}
	hash := ComputeHash(params, storeKey)

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	form.Set("HASH", hash)
	form.Set("encoding", "UTF-8")
	return form
}

func TestVerifyCallback_Approved(t *testing.T) {
	adapter, err := NewAdapter(testConfig())
	require.NoError(t, err)

	result := adapter.VerifyCallback(callbackForm(t, "TEST_STORE_KEY", nil))
	assert.True(t, result.HashValid)
	assert.True(t, result.Captured())
	assert.Equal(t, "ORDER-AB123456", result.OID)
	assert.Equal(t, "25123ABCDEF", result.TransID)
}

func TestVerifyCallback_WrongKey(t *testing.T) {
	adapter, err := NewAdapter(testConfig())
	require.NoError(t, err)

	result := adapter.VerifyCallback(callbackForm(t, "OTHER_KEY", nil))
	assert.False(t, result.HashValid)
	assert.False(t, result.Captured())
}

func TestVerifyCallback_TamperedField(t *testing.T) {
	adapter, err := NewAdapter(testConfig())
	require.NoError(t, err)

	form := callbackForm(t, "TEST_STORE_KEY", nil)
	form.Set("amount", "1.00")
	result := adapter.VerifyCallback(form)
	assert.False(t, result.HashValid)
}

func TestVerifyCallback_DeclinedIsNotCaptured(t *testing.T) {
	adapter, err := NewAdapter(testConfig())
	require.NoError(t, err)

	result := adapter.VerifyCallback(callbackForm(t, "TEST_STORE_KEY", map[string]string{
		"ProcReturnCode": "99",
		"Response":       "Declined",
	}))
	assert.True(t, result.HashValid, "signature still verifies on a declined payment")
	assert.False(t, result.Captured())
}

func TestVerifyCallback_DecodesEntitiesAndTrailingNewlines(t *testing.T) {
	adapter, err := NewAdapter(testConfig())
	require.NoError(t, err)

	// The gateway hashes decoded values but transmits entity-encoded ones.
	params := map[string]string{
		"oid":            "ORDER-AB123456",
		"ProcReturnCode": "00",
		"Response":       "Approved",
		"TransId":        "25123ABCDEF",
		"BillToName":     `Sara & "Co"`,
	}
	hash := ComputeHash(params, "TEST_STORE_KEY")

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	form.Set("BillToName", "Sara &amp; &quot;Co&quot;")
	form.Set("TransId", "25123ABCDEF\n")
	form.Set("HASH", hash)
	form.Set("encoding", "UTF-8")

	result := adapter.VerifyCallback(form)
	assert.True(t, result.HashValid)
	assert.Equal(t, "25123ABCDEF", result.TransID)
}
