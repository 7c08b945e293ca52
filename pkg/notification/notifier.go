package notification

// NotificationData carries one outbound notification
type NotificationData struct {
	To      string            // Recipient email address
	Subject string            // Subject line
	Body    string            // Plain-text content
	Data    map[string]string // Template values
}

// Notifier delivers notifications to users
type Notifier interface {
	Send(notification NotificationData) error
}

// NoopNotifier discards all notifications. Used when no SMTP backend is
// configured.
type NoopNotifier struct{}

func (NoopNotifier) Send(notification NotificationData) error { return nil }

// InitialPasswordNotice builds the notification sent when a user account is
// created with the default initial password and must reset it.
func InitialPasswordNotice(email, password string) NotificationData {
	return NotificationData{
		To:      email,
		Subject: "Your account has been created",
		Body:    "An account has been created for {{.email}}. Your temporary password is {{.password}}. Please sign in and change it immediately.",
		Data: map[string]string{
			"email":    email,
			"password": password,
		},
	}
}
