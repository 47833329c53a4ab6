package hostinfo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
)

// PublicIPv4Path is the instance metadata path of the public address.
const PublicIPv4Path = "public-ipv4"

// DefaultMetadataTimeout bounds a metadata lookup off EC2, where the
// link-local endpoint never answers.
const DefaultMetadataTimeout = 2 * time.Second

// ErrNoPublicIP is returned when the instance has no public address.
var ErrNoPublicIP = errors.New("instance has no public IPv4 address")

// MetadataClient is the subset of the IMDS client used here.
type MetadataClient interface {
	GetMetadata(ctx context.Context, params *imds.GetMetadataInput, optFns ...func(*imds.Options)) (*imds.GetMetadataOutput, error)
}

// NewMetadataClient builds an IMDS client from the default AWS configuration
// chain, so AWS_EC2_METADATA_* environment settings apply.
func NewMetadataClient(ctx context.Context) (*imds.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS configuration: %w", err)
	}
	return imds.NewFromConfig(cfg), nil
}

// PublicIPv4 asks the metadata service for the instance's public address.
func PublicIPv4(ctx context.Context, client MetadataClient) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultMetadataTimeout)
	defer cancel()

	out, err := client.GetMetadata(ctx, &imds.GetMetadataInput{Path: PublicIPv4Path})
	if err != nil {
		return "", fmt.Errorf("query instance metadata: %w", err)
	}
	defer func() { _ = out.Content.Close() }()

	data, err := io.ReadAll(out.Content)
	if err != nil {
		return "", fmt.Errorf("read instance metadata: %w", err)
	}

	addr := strings.TrimSpace(string(data))
	if addr == "" {
		return "", ErrNoPublicIP
	}
	if ip := net.ParseIP(addr); ip == nil || ip.To4() == nil {
		return "", fmt.Errorf("instance metadata returned %q, not an IPv4 address", addr)
	}
	return addr, nil
}
