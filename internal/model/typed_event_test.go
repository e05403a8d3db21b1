package model

import (
	"encoding/json"
	"testing"
)

func TestSwapEventDataJSONStringFields(t *testing.T) {
	payload := SwapEventData{
		User:         "0x1111111111111111111111111111111111111111",
		InputAmount:  "12345678901234567890",
		OutputAmount: "42",
		Fees:         "115792089237316195423570985008687907853269984665640564039457584007913129639935",
		ZeroForOne:   true,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	for _, key := range []string{"input_amount", "output_amount", "fees"} {
		if _, ok := decoded[key].(string); !ok {
			t.Fatalf("%s should be string", key)
		}
	}
	if decoded["zero_for_one"] != true {
		t.Fatalf("zero_for_one mismatch: %v", decoded["zero_for_one"])
	}
}

func TestOperationOmitsUnusedFields(t *testing.T) {
	op := Operation{Op: OpCreatePool, Sender: "0x01", AssetA: "0x02", AssetB: "0x03", Fee: 30}
	data, err := json.Marshal(op)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(decoded) != 5 {
		t.Fatalf("unexpected fields: %v", decoded)
	}
	if _, ok := decoded["zero_for_one"]; ok {
		t.Fatalf("zero_for_one should be omitted")
	}
}
