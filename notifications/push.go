package notifications

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// Pusher delivers a notification to device tokens.
type Pusher interface {
	Send(ctx context.Context, tokens []string, title, body string) error
}

// FirebaseConfig carries service account credentials in one of three forms.
// The first non-empty one wins.
type FirebaseConfig struct {
	ProjectID         string
	CredentialsJSON   string
	CredentialsBase64 string
	CredentialsRaw    string
	IconURL           string
	ClickURL          string
}

// credentials returns the service account JSON, or nil when none is set.
func (c FirebaseConfig) credentials() ([]byte, error) {
	switch {
	case c.CredentialsJSON != "":
		return []byte(c.CredentialsJSON), nil
	case c.CredentialsBase64 != "":
		b, err := base64.StdEncoding.DecodeString(c.CredentialsBase64)
		if err != nil {
			return nil, fmt.Errorf("decode base64 firebase credentials: %w", err)
		}
		return b, nil
	case c.CredentialsRaw != "":
		return []byte(c.CredentialsRaw), nil
	default:
		return nil, nil
	}
}

// Configured reports whether any credentials are present.
func (c FirebaseConfig) Configured() bool {
	return c.CredentialsJSON != "" || c.CredentialsBase64 != "" || c.CredentialsRaw != ""
}

type multicastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// FCMPusher sends notifications through Firebase Cloud Messaging.
type FCMPusher struct {
	client   multicastSender
	iconURL  string
	clickURL string
	log      logrus.FieldLogger
}

// NewFCMPusher initialises the Firebase app from cfg and returns a pusher
// backed by its messaging client.
func NewFCMPusher(ctx context.Context, cfg FirebaseConfig, log logrus.FieldLogger) (*FCMPusher, error) {
	creds, err := cfg.credentials()
	if err != nil {
		return nil, err
	}
	if creds == nil {
		return nil, errors.New("firebase credentials not set")
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, option.WithCredentialsJSON(creds))
	if err != nil {
		return nil, fmt.Errorf("initialise firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("get firebase messaging client: %w", err)
	}

	log.Info("Firebase messaging initialised")
	return &FCMPusher{client: client, iconURL: cfg.IconURL, clickURL: cfg.ClickURL, log: log}, nil
}

func (p *FCMPusher) message(tokens []string, title, body string) *messaging.MulticastMessage {
	msg := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title:    title,
			Body:     body,
			ImageURL: p.iconURL,
		},
		Android: &messaging.AndroidConfig{Priority: "high"},
	}
	if p.clickURL != "" {
		msg.Webpush = &messaging.WebpushConfig{
			FCMOptions: &messaging.WebpushFCMOptions{Link: p.clickURL},
		}
	}
	return msg
}

// Send fails only when no token accepted the message.
func (p *FCMPusher) Send(ctx context.Context, tokens []string, title, body string) error {
	if len(tokens) == 0 {
		return errors.New("no device tokens")
	}

	resp, err := p.client.SendEachForMulticast(ctx, p.message(tokens, title, body))
	if err != nil {
		return err
	}
	if resp.FailureCount > 0 {
		p.log.WithFields(logrus.Fields{
			"success": resp.SuccessCount,
			"failure": resp.FailureCount,
		}).Warn("Some push messages were not delivered")
	}
	if resp.SuccessCount == 0 {
		for _, r := range resp.Responses {
			if r.Error != nil {
				return r.Error
			}
		}
		return errors.New("push not delivered")
	}
	return nil
}

// LogPusher logs notifications instead of sending them. It is used when
// Firebase credentials are absent.
type LogPusher struct {
	Log logrus.FieldLogger
}

func (p LogPusher) Send(ctx context.Context, tokens []string, title, body string) error {
	p.Log.WithFields(logrus.Fields{
		"tokens": len(tokens),
		"title":  title,
		"body":   body,
	}).Info("Firebase not configured, push not sent")
	return nil
}
