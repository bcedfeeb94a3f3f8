package vault

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// RemoteVault delegates Sign/Verify to an external vault service over
// HTTP(S), the production counterpart to LocalVault. It is grounded on
// kmsSigner: same endpoint conventions
// (POST /signData, POST /verify, POST /publicKey), same optional mTLS
// client-cert configuration, same bearer-token header.
type RemoteVault struct {
	endpoint    string
	client      *http.Client
	bearerToken string
}

// RemoteVaultConfig configures a RemoteVault.
type RemoteVaultConfig struct {
	Endpoint      string
	BearerToken   string
	TimeoutMillis int
	TLSCertPath   string
	TLSKeyPath    string
	TLSCAPath     string
}

// NewRemoteVault constructs a RemoteVault from cfg. An empty Endpoint is
// an error: unlike kmsSigner (which tolerates an empty
// endpoint and returns nil, nil to let the caller fall back to a local
// signer), the caller here is expected to make that fallback decision
// itself before constructing a RemoteVault.
func NewRemoteVault(cfg RemoteVaultConfig) (*RemoteVault, error) {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		return nil, fmt.Errorf("vault: remote endpoint required")
	}

	timeoutMs := cfg.TimeoutMillis
	if timeoutMs <= 0 {
		timeoutMs = 5000
	}

	var tlsCfg *tls.Config
	if cfg.TLSCertPath != "" && cfg.TLSKeyPath != "" {
		cert, err := tls.LoadX509KeyPair(cfg.TLSCertPath, cfg.TLSKeyPath)
		if err != nil {
			return nil, fmt.Errorf("vault: load mTLS cert/key: %w", err)
		}
		tlsCfg = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
		if cfg.TLSCAPath != "" {
			caPEM, err := os.ReadFile(cfg.TLSCAPath)
			if err != nil {
				return nil, fmt.Errorf("vault: read CA bundle: %w", err)
			}
			cp := x509.NewCertPool()
			if !cp.AppendCertsFromPEM(caPEM) {
				return nil, fmt.Errorf("vault: parse CA bundle at %s", cfg.TLSCAPath)
			}
			tlsCfg.RootCAs = cp
		}
	}

	return &RemoteVault{
		endpoint:    endpoint,
		bearerToken: cfg.BearerToken,
		client: &http.Client{
			Transport: &http.Transport{TLSClientConfig: tlsCfg},
			Timeout:   time.Duration(timeoutMs) * time.Millisecond,
		},
	}, nil
}

// Sign implements Vault by calling POST {endpoint}/signData.
func (r *RemoteVault) Sign(ctx context.Context, keyID string, data []byte) ([]byte, error) {
	reqBody := map[string]string{
		"keyId": keyID,
		"data":  base64.StdEncoding.EncodeToString(data),
	}
	var resp struct {
		Signature string `json:"signature"`
	}
	if err := r.postJSON(ctx, "/signData", reqBody, &resp); err != nil {
		return nil, fmt.Errorf("vault: signData: %w", err)
	}
	if resp.Signature == "" {
		return nil, fmt.Errorf("vault: signData returned no signature")
	}
	sig, err := base64.StdEncoding.DecodeString(resp.Signature)
	if err != nil {
		return nil, fmt.Errorf("vault: invalid base64 signature: %w", err)
	}
	return sig, nil
}

// Verify implements Vault by calling POST {endpoint}/verify.
func (r *RemoteVault) Verify(ctx context.Context, keyID string, data []byte, sig []byte) (bool, error) {
	reqBody := map[string]string{
		"keyId":     keyID,
		"data":      base64.StdEncoding.EncodeToString(data),
		"signature": base64.StdEncoding.EncodeToString(sig),
	}
	var resp struct {
		Valid bool `json:"valid"`
	}
	if err := r.postJSON(ctx, "/verify", reqBody, &resp); err != nil {
		return false, fmt.Errorf("vault: verify: %w", err)
	}
	return resp.Valid, nil
}

// PublicKey implements Vault by calling POST {endpoint}/publicKey.
func (r *RemoteVault) PublicKey(keyID string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.client.Timeout)
	defer cancel()
	reqBody := map[string]string{"keyId": keyID}
	var resp struct {
		PublicKey string `json:"publicKey"`
	}
	if err := r.postJSON(ctx, "/publicKey", reqBody, &resp); err != nil {
		return nil, fmt.Errorf("vault: publicKey: %w", err)
	}
	if resp.PublicKey == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, keyID)
	}
	return base64.StdEncoding.DecodeString(resp.PublicKey)
}

func (r *RemoteVault) postJSON(ctx context.Context, path string, in interface{}, out interface{}) error {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(in); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+r.bearerToken)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("vault HTTP %d: %s", resp.StatusCode, string(b))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
