// package basesvc - Test chuyển đổi dữ liệu update sang UpdateData.
package basesvc

import "testing"

func TestToUpdateData_PassthroughPointer(t *testing.T) {
	in := &UpdateData{Set: map[string]interface{}{"status": "DecisionMade"}}
	out, err := ToUpdateData(in)
	if err != nil {
		t.Fatalf("ToUpdateData trả về lỗi: %v", err)
	}
	if out != in {
		t.Error("con trỏ UpdateData phải được giữ nguyên")
	}
}

func TestToUpdateData_ValueBecomesPointer(t *testing.T) {
	in := UpdateData{
		Set:   map[string]interface{}{"notifyEmail": "user@example.com"},
		Unset: map[string]interface{}{"nextRetryAt": ""},
	}
	out, err := ToUpdateData(in)
	if err != nil {
		t.Fatalf("ToUpdateData trả về lỗi: %v", err)
	}
	if out.Set["notifyEmail"] != "user@example.com" {
		t.Errorf("Set không được giữ nguyên: %v", out.Set)
	}
	if _, ok := out.Unset["nextRetryAt"]; !ok {
		t.Errorf("Unset không được giữ nguyên: %v", out.Unset)
	}
}

func TestToUpdateData_MapWithOperators(t *testing.T) {
	in := map[string]interface{}{
		"$set":   map[string]interface{}{"isActive": false},
		"$unset": map[string]interface{}{"nextRetryAt": ""},
	}
	out, err := ToUpdateData(in)
	if err != nil {
		t.Fatalf("ToUpdateData trả về lỗi: %v", err)
	}
	if out.Set["isActive"] != false {
		t.Errorf("toán tử $set phải được tách vào Set: %v", out.Set)
	}
	if _, ok := out.Unset["nextRetryAt"]; !ok {
		t.Errorf("toán tử $unset phải được tách vào Unset: %v", out.Unset)
	}
}

func TestToUpdateData_PlainMapWrappedInSet(t *testing.T) {
	in := map[string]interface{}{"lastStatus": "InProcess"}
	out, err := ToUpdateData(in)
	if err != nil {
		t.Fatalf("ToUpdateData trả về lỗi: %v", err)
	}
	if out.Set["lastStatus"] != "InProcess" {
		t.Errorf("map thường phải được wrap trong Set: %v", out.Set)
	}
	if len(out.Unset) != 0 {
		t.Errorf("map thường không được sinh Unset: %v", out.Unset)
	}
}
