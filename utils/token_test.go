package utils

import (
	"errors"
	"testing"
	"time"
)

var testSecret = []byte("test-secret-key-for-jwt-signing-at-least-32-bytes-long")

func TestInvokeTokenRoundTrip(t *testing.T) {
	claims := NewInvokeClaims("vidcompress", "job-42", time.Minute)
	token, err := CreateInvokeToken(claims, testSecret)
	if err != nil {
		t.Fatalf("Failed to create token: %v", err)
	}

	got, err := VerifyInvokeToken(token, VerifyConfig{SecretKey: testSecret, ExpectedIssuer: "vidcompress"})
	if err != nil {
		t.Fatalf("Failed to verify token: %v", err)
	}
	if got.JobID != "job-42" {
		t.Errorf("Expected job id job-42, got %s", got.JobID)
	}
}

func TestVerifyInvokeTokenRejects(t *testing.T) {
	expired := NewInvokeClaims("vidcompress", "job", time.Minute)
	expired.ExpiresAt = time.Now().Add(-time.Hour).Unix()
	expiredToken, _ := CreateInvokeToken(expired, testSecret)

	valid, _ := CreateInvokeToken(NewInvokeClaims("someone-else", "job", time.Minute), testSecret)

	tests := []struct {
		name    string
		token   string
		config  VerifyConfig
		wantErr error
	}{
		{"empty token", "", VerifyConfig{SecretKey: testSecret}, ErrInvalidToken},
		{"garbage", "not-a-jwt", VerifyConfig{SecretKey: testSecret}, ErrInvalidToken},
		{"expired", expiredToken, VerifyConfig{SecretKey: testSecret}, ErrTokenExpired},
		{"wrong key", valid, VerifyConfig{SecretKey: []byte("another-secret-key-that-is-long-enough!!")}, ErrInvalidSignature},
		{"wrong issuer", valid, VerifyConfig{SecretKey: testSecret, ExpectedIssuer: "vidcompress"}, ErrInvalidIssuer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VerifyInvokeToken(tt.token, tt.config)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCreateInvokeTokenRequiresSecret(t *testing.T) {
	if _, err := CreateInvokeToken(NewInvokeClaims("", "job", time.Minute), nil); err == nil {
		t.Error("Expected error without a secret")
	}
	if _, err := CreateInvokeToken(nil, testSecret); err == nil {
		t.Error("Expected error with nil claims")
	}
}
