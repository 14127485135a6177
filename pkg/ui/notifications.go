package ui

import (
	"fmt"
	"os/exec"
	"runtime"

	"pixivdl/pkg/models"
)

// NotificationSender shows a desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

// commandSender runs a platform tool to show the notification
type commandSender struct {
	name string
	args func(title, message string) []string
}

func (c commandSender) Send(title, message string) error {
	return exec.Command(c.name, c.args(title, message)...).Run()
}

const windowsToast = `[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
$template = [Windows.UI.Notifications.ToastNotificationManager]::GetTemplateContent([Windows.UI.Notifications.ToastTemplateType]::ToastText02)
$text = $template.GetElementsByTagName("text")
$text.Item(0).AppendChild($template.CreateTextNode(%q)) | Out-Null
$text.Item(1).AppendChild($template.CreateTextNode(%q)) | Out-Null
[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("pixivdl").Show([Windows.UI.Notifications.ToastNotification]::new($template))`

// platformSender returns the sender for the running OS, nil when unsupported
func platformSender() NotificationSender {
	switch runtime.GOOS {
	case "linux":
		return commandSender{name: "notify-send", args: func(title, message string) []string {
			return []string{"--app-name=pixivdl", title, message}
		}}
	case "darwin":
		return commandSender{name: "osascript", args: func(title, message string) []string {
			return []string{"-e", fmt.Sprintf(`display notification %q with title %q`, message, title)}
		}}
	case "windows":
		return commandSender{name: "powershell", args: func(title, message string) []string {
			return []string{"-NoProfile", "-NonInteractive", "-Command", fmt.Sprintf(windowsToast, title, message)}
		}}
	}
	return nil
}

// Notifier prints end-of-run messages and mirrors them as desktop notifications
type Notifier struct {
	sender NotificationSender
}

// NewNotifierWithSender creates a Notifier with an explicit sender; nil only prints
func NewNotifierWithSender(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender}
}

// NewNotifier creates a Notifier for the current platform
func NewNotifier() *Notifier {
	return &Notifier{sender: platformSender()}
}

// notify prints the message and forwards it to the desktop. Send errors are
// ignored; a missing notify-send must not fail a finished run.
func (n *Notifier) notify(color func(string) string, title, message string) {
	fmt.Fprintf(stdout, "\n%s: %s\n", color(title), color(message))
	if n.sender != nil {
		_ = n.sender.Send(title, message)
	}
}

// SendError sends an error notification
func (n *Notifier) SendError(title, message string) {
	n.notify(Red, title, message)
}

// SendSuccess sends a success notification
func (n *Notifier) SendSuccess(title, message string) {
	n.notify(Green, title, message)
}

// NotifyRun sends the end-of-run notification selected by onComplete and onError
func (n *Notifier) NotifyRun(report *models.RunReport, onComplete, onError bool) {
	switch {
	case report.Failed() && onError:
		n.SendError("pixivdl: download incomplete", fmt.Sprintf("%s: %d works failed, %d files failed",
			report.Source.String(), report.ItemsFailed, report.AssetsFailed))
	case !report.Failed() && onComplete:
		n.SendSuccess("pixivdl: download complete", fmt.Sprintf("%s: %d works, %d files",
			report.Source.String(), report.ItemsCompleted, report.AssetsCompleted))
	}
}
