package security

import (
	"crypto/tls"
	"testing"

	"github.com/kbukum/automl/errors"
	"github.com/kbukum/automl/security/tlstest"
)

// --- Build tests ---

func TestBuild_Disabled(t *testing.T) {
	for name, cfg := range map[string]*TLSConfig{"nil": nil, "zero": {}} {
		got, err := cfg.Build()
		if err != nil || got != nil {
			t.Errorf("%s: expected no tls config, got %v (%v)", name, got, err)
		}
	}
}

func TestBuild_SkipVerify(t *testing.T) {
	got, err := (&TLSConfig{SkipVerify: true, ServerName: "cache"}).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !got.InsecureSkipVerify || got.ServerName != "cache" {
		t.Errorf("unexpected config: %+v", got)
	}
	if got.MinVersion != tls.VersionTLS12 {
		t.Errorf("expected TLS 1.2 by default, got %x", got.MinVersion)
	}
}

func TestBuild_Certificates(t *testing.T) {
	certs := tlstest.Generate(t)
	got, err := (&TLSConfig{
		CAFile:     certs.CAFile,
		CertFile:   certs.CertFile,
		KeyFile:    certs.KeyFile,
		MinVersion: "1.3",
	}).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got.RootCAs == nil {
		t.Error("expected the CA pool to be loaded")
	}
	if len(got.Certificates) != 1 {
		t.Errorf("expected the client certificate, got %d", len(got.Certificates))
	}
	if got.MinVersion != tls.VersionTLS13 {
		t.Errorf("expected TLS 1.3, got %x", got.MinVersion)
	}
}

func TestBuild_BadFiles(t *testing.T) {
	tests := map[string]*TLSConfig{
		"missing ca":   {CAFile: "/nonexistent/ca.pem"},
		"garbage ca":   {CAFile: tlstest.WriteGarbage(t, "ca.pem")},
		"missing cert": {CertFile: "/nonexistent/cert.pem", KeyFile: "/nonexistent/key.pem"},
	}
	for name, cfg := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := cfg.Build(); !errors.HasCode(err, errors.ErrCodeConfiguration) {
				t.Errorf("expected a configuration error, got %v", err)
			}
		})
	}
}

// --- Validate tests ---

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  *TLSConfig
		ok   bool
	}{
		{"nil", nil, true},
		{"pair", &TLSConfig{CertFile: "c.pem", KeyFile: "k.pem"}, true},
		{"cert only", &TLSConfig{CertFile: "c.pem"}, false},
		{"key only", &TLSConfig{KeyFile: "k.pem"}, false},
		{"tls 1.1", &TLSConfig{MinVersion: "1.1"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.HasCode(err, errors.ErrCodeInvalidInput) {
				t.Errorf("expected an invalid input error, got %v", err)
			}
		})
	}
}

func TestEnabled(t *testing.T) {
	var nilCfg *TLSConfig
	if nilCfg.Enabled() || (&TLSConfig{}).Enabled() {
		t.Error("empty settings should leave tls off")
	}
	if !(&TLSConfig{CAFile: "ca.pem"}).Enabled() {
		t.Error("a CA file should turn tls on")
	}
}
