package account

import (
	"errors"
	"fmt"

	"github.com/matheus3301/chatroom/internal/identity"
	"github.com/matheus3301/chatroom/internal/send"
)

// Form validation codes.
const (
	CodeNameRequired     = "name_required"
	CodeEmailRequired    = "email_required"
	CodePasswordRequired = "password_required"
	CodePasswordTooShort = "password_too_short"
	CodePasswordMismatch = "password_mismatch"
)

// FormError is a rejected form field.
type FormError struct {
	Field string
	Code  string
}

func (e *FormError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Code)
}

// Op is the user action an error came from. It picks the fallback text.
type Op string

const (
	OpLogin     Op = "login"
	OpRegister  Op = "register"
	OpLogout    Op = "logout"
	OpSendText  Op = "send_text"
	OpSendImage Op = "send_image"
)

// DefaultLang is used when the requested language has no catalog.
const DefaultLang = "id"

type catalog struct {
	codes     map[string]string
	sentinels map[error]string
	offline   map[Op]string
	fallback  map[Op]string
}

var catalogs = map[string]catalog{
	"id": {
		codes: map[string]string{
			CodeNameRequired:     "Nama harus diisi",
			CodeEmailRequired:    "Email harus diisi",
			CodePasswordRequired: "Password harus diisi",
			CodePasswordTooShort: "Password minimal 6 karakter",
			CodePasswordMismatch: "Password tidak cocok",
		},
		sentinels: map[error]string{
			identity.ErrEmailInUse:         "Email sudah terdaftar",
			identity.ErrInvalidEmail:       "Format email tidak valid",
			identity.ErrWeakPassword:       "Password terlalu lemah",
			identity.ErrInvalidCredentials: "Email atau password salah",
			identity.ErrUserDisabled:       "Akun telah dinonaktifkan",
			identity.ErrTooManyAttempts:    "Terlalu banyak percobaan. Coba lagi nanti.",
			send.ErrBusy:                   "Pesan lain sedang dikirim",
			send.ErrEmptyText:              "Pesan tidak boleh kosong",
			send.ErrNoSession:              "Silakan login terlebih dahulu",
		},
		offline: map[Op]string{
			OpSendText:  "Tidak dapat mengirim pesan. Periksa koneksi internet.",
			OpSendImage: "Tidak dapat upload gambar. Periksa koneksi.",
		},
		fallback: map[Op]string{
			OpLogin:     "Login gagal",
			OpRegister:  "Registrasi gagal",
			OpLogout:    "Gagal logout",
			OpSendText:  "Gagal mengirim pesan",
			OpSendImage: "Gagal upload gambar",
		},
	},
	"en": {
		codes: map[string]string{
			CodeNameRequired:     "Name is required",
			CodeEmailRequired:    "Email is required",
			CodePasswordRequired: "Password is required",
			CodePasswordTooShort: "Password must be at least 6 characters",
			CodePasswordMismatch: "Passwords do not match",
		},
		sentinels: map[error]string{
			identity.ErrEmailInUse:         "Email is already registered",
			identity.ErrInvalidEmail:       "Invalid email format",
			identity.ErrWeakPassword:       "Password is too weak",
			identity.ErrInvalidCredentials: "Wrong email or password",
			identity.ErrUserDisabled:       "This account has been disabled",
			identity.ErrTooManyAttempts:    "Too many attempts. Try again later.",
			send.ErrBusy:                   "Another message is still sending",
			send.ErrEmptyText:              "Message is empty",
			send.ErrNoSession:              "Please log in first",
		},
		offline: map[Op]string{
			OpSendText:  "Cannot send message. Check your internet connection.",
			OpSendImage: "Cannot upload image. Check your connection.",
		},
		fallback: map[Op]string{
			OpLogin:     "Login failed",
			OpRegister:  "Registration failed",
			OpLogout:    "Logout failed",
			OpSendText:  "Failed to send message",
			OpSendImage: "Failed to upload image",
		},
	},
}

// UserMessage renders err as the text shown to the user for op.
func UserMessage(op Op, err error, lang string) string {
	if err == nil {
		return ""
	}
	c, ok := catalogs[lang]
	if !ok {
		c = catalogs[DefaultLang]
	}

	var fe *FormError
	if errors.As(err, &fe) {
		if msg, ok := c.codes[fe.Code]; ok {
			return msg
		}
	}
	if errors.Is(err, send.ErrOffline) {
		if msg, ok := c.offline[op]; ok {
			return msg
		}
	}
	for sentinel, msg := range c.sentinels {
		if errors.Is(err, sentinel) {
			return msg
		}
	}
	if msg, ok := c.fallback[op]; ok {
		return msg
	}
	return err.Error()
}
