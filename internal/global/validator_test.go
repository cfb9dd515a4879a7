// Package global - Test các custom validator cho định dạng IRCC.
package global

import "testing"

func TestValidateVar_AppNumber(t *testing.T) {
	InitValidator()

	valid := []string{
		"C000123456",
		"EP00012345",
		"W301234567",
		"c123456",
	}
	for _, v := range valid {
		if err := Validate.Var(v, "app_number"); err != nil {
			t.Errorf("số hồ sơ hợp lệ %q bị từ chối: %v", v, err)
		}
	}

	invalid := []string{
		"123456789",    // thiếu prefix chữ
		"ABC123456",    // prefix quá 2 chữ
		"C12345",       // quá ít chữ số
		"C12345678901", // quá nhiều chữ số
		"C-000123456",
	}
	for _, v := range invalid {
		if err := Validate.Var(v, "app_number"); err == nil {
			t.Errorf("số hồ sơ sai định dạng %q lại được chấp nhận", v)
		}
	}

	// Rỗng được bỏ qua, phải kết hợp required khi bắt buộc.
	if err := Validate.Var("", "app_number"); err != nil {
		t.Errorf("giá trị rỗng phải được bỏ qua: %v", err)
	}
	if err := Validate.Var("", "required,app_number"); err == nil {
		t.Error("required,app_number phải từ chối giá trị rỗng")
	}
}

func TestValidateVar_UCI(t *testing.T) {
	InitValidator()

	valid := []string{
		"12345678",
		"1234-5678",
		"1234567890",
		"12-3456-7890",
	}
	for _, v := range valid {
		if err := Validate.Var(v, "uci"); err != nil {
			t.Errorf("UCI hợp lệ %q bị từ chối: %v", v, err)
		}
	}

	invalid := []string{
		"123456",      // 6 chữ số
		"123456789",   // 9 chữ số
		"12345678901", // 11 chữ số
		"abcd-efgh",
	}
	for _, v := range invalid {
		if err := Validate.Var(v, "uci"); err == nil {
			t.Errorf("UCI sai định dạng %q lại được chấp nhận", v)
		}
	}

	if err := Validate.Var("", "uci"); err != nil {
		t.Errorf("UCI rỗng phải được bỏ qua (chỉ hồ sơ di trú mới cần): %v", err)
	}
}

func TestValidateVar_NoXSS(t *testing.T) {
	InitValidator()

	if err := Validate.Var("user@example.com", "no_xss"); err != nil {
		t.Errorf("chuỗi bình thường bị từ chối: %v", err)
	}
	if err := Validate.Var("<script>alert(1)</script>", "no_xss"); err == nil {
		t.Error("chuỗi chứa script phải bị từ chối")
	}
	if err := Validate.Var("JAVASCRIPT:void(0)", "no_xss"); err == nil {
		t.Error("kiểm tra XSS phải không phân biệt hoa thường")
	}
}
