// Package kubeconfig resolves which kubeconfig the service should use,
// downloading per-cluster configs from object storage when needed.
package kubeconfig

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"sigs.k8s.io/yaml"

	"github.com/kubewise/kubewise/internal/config"
	"github.com/kubewise/kubewise/internal/logging"
)

// objectStore is the slice of the S3 client the loader needs.
type objectStore interface {
	FGetObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.GetObjectOptions) error
}

// Loader resolves kubeconfig paths from a local file, object storage, or the
// default location.
type Loader struct {
	cfg    config.KubernetesConfig
	store  objectStore
	logger *logging.Logger
	// cacheDir defaults to os.TempDir, tests override it
	cacheDir string
}

// NewLoader builds a loader. The object-store client is only created when a
// bucket is configured; without one the loader still resolves local paths.
func NewLoader(cfg config.KubernetesConfig, logger *logging.Logger) (*Loader, error) {
	l := &Loader{cfg: cfg, logger: logger, cacheDir: os.TempDir()}
	if cfg.S3Bucket == "" {
		return l, nil
	}

	endpoint, secure, err := splitEndpoint(cfg.S3Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid object store endpoint: %w", err)
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKeyID, cfg.S3SecretKey, ""),
		Secure: secure,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create object store client: %w", err)
	}
	l.store = client
	return l, nil
}

// splitEndpoint turns an endpoint URL into the host[:port] form minio wants.
// A bare host defaults to TLS, matching how the service is deployed.
func splitEndpoint(endpoint string) (string, bool, error) {
	if endpoint == "" {
		return "s3.amazonaws.com", true, nil
	}
	if !strings.Contains(endpoint, "://") {
		return endpoint, true, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, err
	}
	return u.Host, u.Scheme != "http", nil
}

// Resolve returns the kubeconfig path for the service's own cluster access:
// the configured local path if the file exists, then the configured object
// store key, then ~/.kube/config.
func (l *Loader) Resolve(ctx context.Context) (string, error) {
	if l.cfg.KubeconfigPath != "" {
		if _, err := os.Stat(l.cfg.KubeconfigPath); err == nil {
			l.logger.Info("Using local kubeconfig at %s", l.cfg.KubeconfigPath)
			return l.cfg.KubeconfigPath, nil
		}
	}

	if l.store != nil && l.cfg.S3KubeconfigKey != "" {
		path, err := l.fetch(ctx, l.cfg.S3KubeconfigKey, filepath.Join(l.cacheDir, "kubeconfig"))
		if err == nil {
			return path, nil
		}
		l.logger.Error("Failed to download kubeconfig from object store: %v", err)
	}

	home, err := os.UserHomeDir()
	if err == nil {
		defaultPath := filepath.Join(home, ".kube", "config")
		if _, err := os.Stat(defaultPath); err == nil {
			l.logger.Info("Using default kubeconfig at %s", defaultPath)
			return defaultPath, nil
		}
	}

	return "", fmt.Errorf("no kubeconfig found, set KUBECONFIG_PATH or configure the object store bucket")
}

// ForCluster returns a kubeconfig path for a named cluster, downloading
// kubeconfigs/<cluster_id> from the bucket. A cached copy is reused when it
// is still valid YAML; an invalid cache triggers a re-download.
func (l *Loader) ForCluster(ctx context.Context, clusterID string) (string, error) {
	if clusterID == "" {
		return "", fmt.Errorf("cluster id is required")
	}
	if l.store == nil {
		return "", fmt.Errorf("cluster %s: no object store bucket configured", clusterID)
	}

	cachePath := filepath.Join(l.cacheDir, clusterID)
	if _, err := os.Stat(cachePath); err == nil {
		if err := validateYAML(cachePath); err == nil {
			l.logger.Info("Using cached kubeconfig for cluster %s", clusterID)
			return cachePath, nil
		}
		l.logger.Warning("Cached kubeconfig for cluster %s is invalid, re-downloading", clusterID)
	}

	path, err := l.fetch(ctx, "kubeconfigs/"+clusterID, cachePath)
	if err != nil {
		return "", fmt.Errorf("download kubeconfig for cluster %s: %w", clusterID, err)
	}
	return path, nil
}

func (l *Loader) fetch(ctx context.Context, key, dest string) (string, error) {
	l.logger.Info("Downloading kubeconfig from bucket %s key %s", l.cfg.S3Bucket, key)
	if err := l.store.FGetObject(ctx, l.cfg.S3Bucket, key, dest, minio.GetObjectOptions{}); err != nil {
		return "", err
	}
	if err := validateYAML(dest); err != nil {
		return "", err
	}
	if err := os.Chmod(dest, 0o600); err != nil {
		return "", fmt.Errorf("chmod kubeconfig: %w", err)
	}
	return dest, nil
}

func validateYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read kubeconfig: %w", err)
	}
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("kubeconfig is not valid YAML: %w", err)
	}
	if len(doc) == 0 {
		return fmt.Errorf("kubeconfig is empty")
	}
	return nil
}
