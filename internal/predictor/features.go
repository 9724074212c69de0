package predictor

import (
	"fmt"
	"strings"
)

// ML model instrument types. Each one has its own trained model and feature
// schema on the prediction service.
const (
	ModelCreditCard   = "credit_card"
	ModelBankTransfer = "bank_transfer"
	ModelUPI          = "upi"
	ModelBitcoin      = "bitcoin"
)

// ModelType maps an application transaction type onto the ML model that
// scores it. Account movement types all route to the bank transfer model.
func ModelType(transactionType string) string {
	switch strings.ToLower(transactionType) {
	case ModelCreditCard:
		return ModelCreditCard
	case ModelUPI:
		return ModelUPI
	case ModelBitcoin:
		return ModelBitcoin
	default:
		return ModelBankTransfer
	}
}

// Features builds the transaction_data payload for one model type. The
// service zero-fills any feature it expects that is absent, so only the
// schema-identifying keys and the amount need to be present. Values are
// deterministic; the same transaction always produces the same payload.
func Features(modelType string, amount float64) map[string]any {
	switch modelType {
	case ModelCreditCard:
		// PCA-anonymized card features V1..V28 plus the raw amount.
		data := make(map[string]any, 30)
		data["Time"] = 0.0
		for i := 1; i <= 28; i++ {
			data[fmt.Sprintf("V%d", i)] = 0.0
		}
		data["Amount"] = amount
		return data
	case ModelBitcoin:
		data := make(map[string]any, 9)
		for i := 1; i <= 8; i++ {
			data[fmt.Sprintf("feature_%d", i)] = 0.0
		}
		data["amount"] = amount
		return data
	case ModelUPI:
		return map[string]any{
			"amount":         amount,
			"upi_id":         "user@bank",
			"payment_method": "UPI",
		}
	default:
		// Money movement schema: balances before and after on both sides.
		return map[string]any{
			"amount":         amount,
			"type":           "TRANSFER",
			"oldbalanceOrg":  amount,
			"newbalanceOrig": 0.0,
			"oldbalanceDest": 0.0,
			"newbalanceDest": amount,
		}
	}
}

// DetectModelType inspects a raw feature map and picks the model it belongs
// to. Used when a caller submits features without declaring an instrument.
func DetectModelType(data map[string]any) string {
	for key := range data {
		if len(key) > 1 && key[0] == 'V' && isDigits(key[1:]) {
			return ModelCreditCard
		}
	}
	if t, ok := data["type"]; ok {
		switch strings.ToUpper(fmt.Sprint(t)) {
		case "TRANSFER", "CASH_OUT", "CASH-OUT":
			return ModelBankTransfer
		}
	}
	for key := range data {
		if strings.HasPrefix(key, "feature_") {
			return ModelBitcoin
		}
	}
	if _, ok := data["upi_id"]; ok {
		return ModelUPI
	}
	if _, ok := data["vpa"]; ok {
		return ModelUPI
	}
	if m, ok := data["payment_method"]; ok && strings.EqualFold(fmt.Sprint(m), "UPI") {
		return ModelUPI
	}
	return ModelBankTransfer
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
