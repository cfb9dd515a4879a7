// Package notification gửi email thông báo thay đổi trạng thái hồ sơ cho user.
package notification

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/goagain/ircc-tracker/config"
	"github.com/goagain/ircc-tracker/internal/utility"
)

// EmailNotifier gửi thông báo qua SMTP.
type EmailNotifier struct {
	host     string
	port     int
	username string
	password string
	from     string

	// cho phép test thay tầng gửi thật bằng fake
	send func(msg *gomail.Message) error
}

// NewEmailNotifier tạo mới EmailNotifier từ cấu hình SMTP.
func NewEmailNotifier(cfg *config.Configuration) *EmailNotifier {
	n := &EmailNotifier{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     cfg.SMTPFrom,
	}
	n.send = func(msg *gomail.Message) error {
		dialer := gomail.NewDialer(n.host, n.port, n.username, n.password)
		return dialer.DialAndSend(msg)
	}
	return n
}

// SendStatusUpdate gửi email báo thay đổi trạng thái. changes là các dòng
// thay đổi phân cách bằng '\n'.
func (n *EmailNotifier) SendStatusUpdate(ctx context.Context, to, username, applicationNumber, changes string, updatedAt time.Time) error {
	if n.host == "" {
		// Chưa cấu hình SMTP, chỉ log thay vì gửi
		logrus.WithFields(logrus.Fields{
			"to": to,
		}).Info("📧 [NOTIFY] SMTP chưa cấu hình, bỏ qua gửi email")
		return nil
	}

	if err := utility.ValidateEmail(to); err != nil {
		return fmt.Errorf("địa chỉ nhận %q không hợp lệ: %w", to, err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", n.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "IRCC Status Update Notification")
	msg.SetBody("text/plain", statusUpdateText(username, applicationNumber, changes, updatedAt))
	msg.AddAlternative("text/html", statusUpdateHTML(username, applicationNumber, changes, updatedAt))

	if err := n.send(msg); err != nil {
		return fmt.Errorf("gửi email tới %s thất bại: %w", to, err)
	}

	logrus.WithFields(logrus.Fields{
		"to": to,
	}).Info("📧 [NOTIFY] Đã gửi email thông báo trạng thái")
	return nil
}

// statusUpdateHTML render nội dung email HTML.
func statusUpdateHTML(username, applicationNumber, changes string, updatedAt time.Time) string {
	changeLines := strings.Split(changes, "\n")
	changesHTML := ""
	for _, line := range changeLines {
		if line == "" {
			continue
		}
		changesHTML += "<p>" + html.EscapeString(line) + "</p>\n"
	}

	return fmt.Sprintf(`
<html>
	<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
		<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
			<h2 style="color: #2c5aa0; border-bottom: 2px solid #2c5aa0; padding-bottom: 10px;">
				🇨🇦 IRCC Status Update Notification
			</h2>

			<div style="background-color: #f8f9fa; padding: 20px; border-radius: 8px; margin: 20px 0;">
				<h3 style="margin-top: 0; color: #495057;">Account Information</h3>
				<p><strong>IRCC Username:</strong> %s</p>
				<p><strong>Application Number:</strong> %s</p>
				<p><strong>Check Time:</strong> %s</p>
			</div>

			<div style="background-color: #fff3cd; padding: 20px; border-radius: 8px; border-left: 4px solid #ffc107;">
				<h3 style="margin-top: 0; color: #856404;">Status Change</h3>
				%s
			</div>

			<div style="margin-top: 30px; padding-top: 20px; border-top: 1px solid #dee2e6;">
				<p style="font-size: 0.9em; color: #6c757d;">
					This is an automatically generated email, please do not reply.<br>
					If you have any questions, please contact the system administrator.
				</p>
				<p style="font-size: 0.9em; color: #6c757d;">
					<strong>IRCC Tracker</strong> - Keep you informed about your application progress
				</p>
			</div>
		</div>
	</body>
</html>`,
		html.EscapeString(username),
		html.EscapeString(applicationNumber),
		updatedAt.Format("2006-01-02 15:04:05"),
		changesHTML,
	)
}

// statusUpdateText render nội dung email plain text.
func statusUpdateText(username, applicationNumber, changes string, updatedAt time.Time) string {
	return fmt.Sprintf(`🇨🇦 IRCC Status Update Notification

Account Information:
IRCC Username: %s
Application Number: %s
Check Time: %s

Status Change:
%s

---
This is an automatically generated email, please do not reply.
If you have any questions, please contact the system administrator.

IRCC Tracker - Keep you informed about your application progress
`,
		username,
		applicationNumber,
		updatedAt.Format("2006-01-02 15:04:05"),
		changes,
	)
}
