// Package notification - Test nội dung email và hành vi khi SMTP chưa cấu hình.
package notification

import (
	"context"
	"strings"
	"testing"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/goagain/ircc-tracker/config"
)

func newTestNotifier(sent *[]*gomail.Message) *EmailNotifier {
	n := NewEmailNotifier(&config.Configuration{
		SMTPHost:     "smtp.example.com",
		SMTPPort:     587,
		SMTPUsername: "mailer",
		SMTPPassword: "secret",
		SMTPFrom:     "tracker@example.com",
	})
	n.send = func(msg *gomail.Message) error {
		*sent = append(*sent, msg)
		return nil
	}
	return n
}

func TestSendStatusUpdate_BuildsMessage(t *testing.T) {
	var sent []*gomail.Message
	n := newTestNotifier(&sent)

	changes := "Changed: Application Status: InProcess -> DecisionMade\nAdded: Event: AOR -> AOR"
	err := n.SendStatusUpdate(context.Background(), "user@example.com", "ircc-user", "C000012345", changes, time.UnixMilli(1700000000000))
	if err != nil {
		t.Fatalf("SendStatusUpdate trả về lỗi: %v", err)
	}
	if len(sent) != 1 {
		t.Fatalf("kỳ vọng 1 email được gửi, nhận được %d", len(sent))
	}

	msg := sent[0]
	if got := msg.GetHeader("Subject"); len(got) != 1 || got[0] != "IRCC Status Update Notification" {
		t.Errorf("subject sai: %v", got)
	}
	if got := msg.GetHeader("To"); len(got) != 1 || got[0] != "user@example.com" {
		t.Errorf("người nhận sai: %v", got)
	}
	if got := msg.GetHeader("From"); len(got) != 1 || got[0] != "tracker@example.com" {
		t.Errorf("người gửi sai: %v", got)
	}
}

func TestSendStatusUpdate_RejectsMalformedRecipient(t *testing.T) {
	var sent []*gomail.Message
	n := newTestNotifier(&sent)

	err := n.SendStatusUpdate(context.Background(), "khong-phai-email", "ircc-user", "C000012345", "x", time.UnixMilli(1700000000000))
	if err == nil {
		t.Fatal("địa chỉ nhận sai định dạng phải trả về lỗi")
	}
	if len(sent) != 0 {
		t.Errorf("không được gửi email tới địa chỉ sai định dạng, nhận được %d", len(sent))
	}
}

func TestSendStatusUpdate_NoSMTPConfigIsNoop(t *testing.T) {
	n := NewEmailNotifier(&config.Configuration{})
	n.send = func(msg *gomail.Message) error {
		t.Error("không được gửi email khi SMTP chưa cấu hình")
		return nil
	}

	err := n.SendStatusUpdate(context.Background(), "user@example.com", "ircc-user", "C000012345", "changes", time.Now())
	if err != nil {
		t.Errorf("thiếu cấu hình SMTP phải là no-op, nhận được lỗi %v", err)
	}
}

func TestStatusUpdateHTML_Content(t *testing.T) {
	body := statusUpdateHTML("ircc-user", "C000012345", "Changed: Application Status: InProcess -> DecisionMade", time.UnixMilli(1700000000000).UTC())

	for _, want := range []string{
		"🇨🇦 IRCC Status Update Notification",
		"Account Information",
		"Status Change",
		"ircc-user",
		"C000012345",
		"InProcess -&gt; DecisionMade",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("HTML email thiếu %q", want)
		}
	}
}

func TestStatusUpdateHTML_EscapesInput(t *testing.T) {
	body := statusUpdateHTML("<script>alert(1)</script>", "C000012345", "x", time.Now())
	if strings.Contains(body, "<script>") {
		t.Error("username phải được escape trong HTML")
	}
	if !strings.Contains(body, "&lt;script&gt;") {
		t.Error("username escape phải xuất hiện dạng entity")
	}
}

func TestStatusUpdateText_Content(t *testing.T) {
	body := statusUpdateText("ircc-user", "C000012345", "Changed: Application Status: A -> B", time.UnixMilli(1700000000000).UTC())

	for _, want := range []string{
		"IRCC Status Update Notification",
		"IRCC Username: ircc-user",
		"Application Number: C000012345",
		"Changed: Application Status: A -> B",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("email plain text thiếu %q", want)
		}
	}
}
