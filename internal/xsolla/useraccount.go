package xsolla

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/florianilch/xsolla-sdk/internal/authcall"
)

// DeviceType is the platform a device ID belongs to.
type DeviceType string

const (
	DeviceAndroid DeviceType = "android"
	DeviceIOS     DeviceType = "ios"
)

// ParseDeviceType accepts the DeviceType names case-insensitively.
func ParseDeviceType(s string) (DeviceType, error) {
	switch t := DeviceType(strings.ToLower(s)); t {
	case DeviceAndroid, DeviceIOS:
		return t, nil
	}
	return "", fmt.Errorf("unknown device type %q (expected: android, ios)", s)
}

// Device is a device linked to the user account.
type Device struct {
	ID         int    `json:"id"`
	Type       string `json:"type"`
	Device     string `json:"device"`
	LastUsedAt string `json:"last_used_at"`
}

// AddUsernameEmailRequest adds username/email authentication to an account
// created via device ID or phone number.
type AddUsernameEmailRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	// PromoEmailAgreement is the newsletter consent (0 or 1). Nil uses the
	// server default.
	PromoEmailAgreement *int `json:"promo_email_agreement,omitempty"`
}

type addUsernameEmailResponse struct {
	EmailConfirmationRequired bool `json:"email_confirmation_required"`
}

type linkDeviceRequest struct {
	Device   string `json:"device"`
	DeviceID string `json:"device_id"`
}

// AddUsernameEmailAuth links username/email and password authentication to
// the current account. It reports whether the email must be confirmed.
func (c *Client) AddUsernameEmailAuth(ctx context.Context, req AddUsernameEmailRequest) (bool, error) {
	if req.Username == "" || req.Password == "" || req.Email == "" {
		return false, errors.New("username, password and email are required")
	}

	endpoint := c.loginURL("/users/me/link_email_password?login_url=%s", url.QueryEscape(c.redirectURL))
	resp, err := authcall.Call[addUsernameEmailResponse](ctx, c.exec, authorized(http.MethodPost, endpoint, req))
	if err != nil {
		return false, fmt.Errorf("adding username/email auth: %w", err)
	}
	return resp.EmailConfirmationRequired, nil
}

// UserDevices lists the devices linked to the current account.
func (c *Client) UserDevices(ctx context.Context) ([]Device, error) {
	devices, err := authcall.Call[[]Device](ctx, c.exec, authorized(http.MethodGet, c.loginURL("/users/me/devices"), nil))
	if err != nil {
		return nil, fmt.Errorf("getting user devices: %w", err)
	}
	return devices, nil
}

// LinkDevice links a device to the current account.
func (c *Client) LinkDevice(ctx context.Context, deviceType DeviceType, device, deviceID string) error {
	if device == "" || deviceID == "" {
		return errors.New("device and device ID are required")
	}

	endpoint := c.loginURL("/users/me/devices/%s", url.PathEscape(string(deviceType)))
	body := linkDeviceRequest{Device: device, DeviceID: deviceID}
	if _, err := c.exec.Do(ctx, authorized(http.MethodPost, endpoint, body)); err != nil {
		return fmt.Errorf("linking device: %w", err)
	}
	return nil
}

// UnlinkDevice unlinks a device by the ID Xsolla Login assigned to it (not the
// platform device ID).
func (c *Client) UnlinkDevice(ctx context.Context, id int) error {
	endpoint := c.loginURL("/users/me/devices/%d", id)
	if _, err := c.exec.Do(ctx, authorized(http.MethodDelete, endpoint, nil)); err != nil {
		return fmt.Errorf("unlinking device: %w", err)
	}
	return nil
}
