package metadata

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gowebpki/jcs"
	"go.uber.org/zap"

	"github.com/quest-chains/qc-indexer/internal/adapter"
	"github.com/quest-chains/qc-indexer/internal/logger"
)

// Details holds the fields extracted from a resolved details document.
// Every field is nullable; resolution failures leave all of them nil so
// entity creation never blocks on off-chain content.
type Details struct {
	Details      *string `json:"details"`
	DetailsHash  *string `json:"details_hash"`
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	ImageURL     *string `json:"image_url"`
	ExternalURL  *string `json:"external_url"`
	AnimationURL *string `json:"animation_url"`
	MimeType     *string `json:"mime_type"`

	// Document is the raw details document, set only when it parsed as JSON
	Document json.RawMessage `json:"document,omitempty"`
}

// Resolver defines the interface for resolving details documents referenced
// by on-chain details strings
//
//go:generate mockgen -source=resolver.go -destination=../mocks/metadata_resolver.go -package=mocks -mock_names=Resolver=MockMetadataResolver
type Resolver interface {
	// Resolve fetches and parses the details document referenced by a
	// details string. It never returns an error: unreachable or malformed
	// documents yield a Details with only the raw string populated.
	Resolve(ctx context.Context, details string) *Details

	// ResolveToken behaves like Resolve and additionally sniffs the MIME
	// type of the referenced media
	ResolveToken(ctx context.Context, details string) *Details
}

type resolver struct {
	httpClient adapter.HTTPClient
	json       adapter.JSON
	gateways   []string
}

// NewResolver creates a details resolver that fetches IPFS content through
// the given gateway base URLs (e.g. "https://ipfs.io")
func NewResolver(httpClient adapter.HTTPClient, json adapter.JSON, gateways []string) Resolver {
	return &resolver{
		httpClient: httpClient,
		json:       json,
		gateways:   gateways,
	}
}

// Resolve fetches and parses the details document referenced by a details string
func (r *resolver) Resolve(ctx context.Context, details string) *Details {
	return r.resolve(ctx, details, false)
}

// ResolveToken behaves like Resolve and additionally sniffs the MIME type
func (r *resolver) ResolveToken(ctx context.Context, details string) *Details {
	return r.resolve(ctx, details, true)
}

func (r *resolver) resolve(ctx context.Context, details string, sniffMime bool) *Details {
	if details == "" {
		return &Details{}
	}

	result := &Details{Details: &details}

	raw, err := r.fetchFromURI(ctx, details)
	if err != nil {
		logger.WarnCtx(ctx, "failed to resolve details document",
			zap.String("details", details),
			zap.Error(err))
		return result
	}

	if hash, err := canonicalHash(raw); err != nil {
		logger.WarnCtx(ctx, "failed to hash details document",
			zap.String("details", details),
			zap.Error(err))
	} else {
		result.DetailsHash = &hash
	}

	var document map[string]interface{}
	if err := r.json.Unmarshal(raw, &document); err != nil {
		logger.WarnCtx(ctx, "details document is not valid JSON",
			zap.String("details", details),
			zap.Error(err))
		return result
	}

	result.Document = json.RawMessage(raw)
	result.Name = stringField(document, "name")
	result.Description = stringField(document, "description")
	result.ImageURL = uriField(document, "image_url", "image")
	result.ExternalURL = uriField(document, "external_url")
	result.AnimationURL = uriField(document, "animation_url")

	if sniffMime {
		result.MimeType = detectMimeType(ctx, r.httpClient, result.AnimationURL, result.ImageURL)
	}

	return result
}

// canonicalHash returns the hex sha256 of the JCS-canonicalized document
func canonicalHash(raw []byte) (string, error) {
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize details: %w", err)
	}
	hash := sha256.Sum256(canonical)
	return hex.EncodeToString(hash[:]), nil
}

// stringField extracts the first non-empty string among the given keys
func stringField(document map[string]interface{}, keys ...string) *string {
	for _, key := range keys {
		if v, ok := document[key].(string); ok && v != "" {
			return &v
		}
	}
	return nil
}

// uriField extracts a string field and rewrites ipfs:// URIs to the public gateway
func uriField(document map[string]interface{}, keys ...string) *string {
	v := stringField(document, keys...)
	if v == nil {
		return nil
	}
	rewritten := uriToGateway(*v)
	return &rewritten
}

// uriToGateway rewrites ipfs:// URIs to an HTTP gateway URL. Other schemes
// pass through unchanged.
func uriToGateway(uri string) string {
	if strings.HasPrefix(uri, "ipfs://") {
		return "https://ipfs.io/ipfs/" + strings.TrimPrefix(uri, "ipfs://")
	}
	return uri
}

// fetchFromURI fetches a details document, handling the URI shapes that
// appear on chain: bare IPFS CIDs, ipfs:// URIs, HTTP URLs, and data URIs.
func (r *resolver) fetchFromURI(ctx context.Context, uri string) ([]byte, error) {
	switch {
	case strings.HasPrefix(uri, "data:"):
		return parseDataURI(uri)
	case strings.HasPrefix(uri, "ipfs://"):
		return r.fetchFromIPFS(ctx, strings.TrimPrefix(uri, "ipfs://"))
	case strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://"):
		return r.httpClient.GetBytes(ctx, uri)
	default:
		// Quest chain contracts emit bare IPFS hashes
		return r.fetchFromIPFS(ctx, uri)
	}
}

// fetchFromIPFS tries each configured gateway in order and returns the
// first successful response
func (r *resolver) fetchFromIPFS(ctx context.Context, ipfsPath string) ([]byte, error) {
	var lastErr error
	for _, gateway := range r.gateways {
		url := strings.TrimSuffix(gateway, "/") + "/ipfs/" + ipfsPath
		raw, err := r.httpClient.GetBytes(ctx, url)
		if err == nil {
			return raw, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no IPFS gateways configured")
	}
	return nil, fmt.Errorf("failed to fetch %s: %w", ipfsPath, lastErr)
}

// parseDataURI parses a data URI and returns its payload.
// Supports data:application/json;base64,<data> and data:application/json,<data>.
func parseDataURI(uri string) ([]byte, error) {
	parts := strings.SplitN(uri[5:], ",", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid data URI format")
	}

	dataType := parts[0]
	data := parts[1]

	if strings.Contains(dataType, "base64") {
		decoded, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64: %w", err)
		}
		return decoded, nil
	}

	return []byte(data), nil
}
