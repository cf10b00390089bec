package ui

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"twitsent/pkg/collector"
	"twitsent/pkg/config"
)

// NotificationSender interface for platform-specific notification implementations
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	cmd := exec.Command("notify-send", title, message)
	return cmd.Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	cmd := exec.Command("osascript", "-e", script)
	return cmd.Run()
}

// WindowsNotificationSender sends notifications on Windows using PowerShell
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null
		$xml = @"
<toast>
	<visual>
		<binding template="ToastText02">
			<text id="1">%s</text>
			<text id="2">%s</text>
		</binding>
	</visual>
</toast>
"@
		$doc = [Windows.Data.Xml.Dom.XmlDocument]::new()
		$doc.LoadXml($xml)
		$toast = [Windows.UI.Notifications.ToastNotification]::new($doc)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("twitsent").Show($toast)
	`, title, message)

	cmd := exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script)
	return cmd.Run()
}

// platformSender picks the sender for the current OS, or nil when unsupported.
func platformSender() NotificationSender {
	switch runtime.GOOS {
	case "linux":
		return &LinuxNotificationSender{}
	case "darwin":
		return &MacOSNotificationSender{}
	case "windows":
		return &WindowsNotificationSender{}
	default:
		return nil
	}
}

// Notifier reports run milestones on the console and as desktop notifications
type Notifier struct {
	sender NotificationSender
	cfg    config.NotificationConfig
	out    io.Writer
}

// NewNotifier creates a Notifier for the current platform
func NewNotifier(cfg config.NotificationConfig) *Notifier {
	return NewNotifierWithSender(cfg, platformSender(), os.Stdout)
}

// NewNotifierWithSender creates a Notifier with an explicit sender and console.
func NewNotifierWithSender(cfg config.NotificationConfig, sender NotificationSender, out io.Writer) *Notifier {
	if out == nil {
		out = io.Discard
	}
	return &Notifier{sender: sender, cfg: cfg, out: out}
}

// SetOutput redirects console echoes, e.g. to io.Discard while a full-screen UI runs.
func (n *Notifier) SetOutput(out io.Writer) {
	if out == nil {
		out = io.Discard
	}
	n.out = out
}

// SendNotification prints to the console and sends a desktop notification
func (n *Notifier) SendNotification(title, message string) {
	fmt.Fprintf(n.out, "\n%s: %s\n", Cyan(title), Yellow(message))
	n.send(title, message)
}

// SendError sends an error notification
func (n *Notifier) SendError(title, message string) {
	fmt.Fprintf(n.out, "\n%s: %s\n", Red(title), Red(message))
	n.send(title, message)
}

// SendSuccess sends a success notification
func (n *Notifier) SendSuccess(title, message string) {
	fmt.Fprintf(n.out, "\n%s: %s\n", Green(title), Green(message))
	n.send(title, message)
}

func (n *Notifier) send(title, message string) {
	if n.sender == nil || !n.cfg.Enabled {
		return
	}
	// Notifications are best effort.
	_ = n.sender.Send(title, message)
}

// Cooldown announces a rate limit wait and when collection resumes.
func (n *Notifier) Cooldown(d time.Duration) {
	if !n.cfg.OnCooldown {
		return
	}
	resume := time.Now().Add(d).Format("15:04")
	n.SendNotification("Rate limit reached",
		fmt.Sprintf("Cooling down for %s, resuming around %s", d.Round(time.Second), resume))
}

// Failed announces a run that stopped with err.
func (n *Notifier) Failed(err error) {
	if !n.cfg.OnError || err == nil {
		return
	}
	msg := err.Error()
	if len(msg) > 200 {
		msg = msg[:197] + "..."
	}
	n.SendError("Collection failed", strings.TrimSpace(msg))
}

// Completed announces a finished run.
func (n *Notifier) Completed(summary string) {
	if !n.cfg.OnComplete {
		return
	}
	n.SendSuccess("Collection complete", summary)
}

// Observer returns a collector.Observer that announces cooldowns.
func (n *Notifier) Observer() collector.Observer {
	return cooldownObserver{n: n}
}

type cooldownObserver struct {
	collector.NopObserver
	n *Notifier
}

func (c cooldownObserver) Throttled(cooldown time.Duration) {
	c.n.Cooldown(cooldown)
}
