package kubeconfig

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubewise/kubewise/internal/config"
	"github.com/kubewise/kubewise/internal/logging"
)

const validKubeconfig = `apiVersion: v1
kind: Config
clusters:
- name: test
  cluster:
    server: https://example.test:6443
`

type fakeStore struct {
	content string
	err     error
	fetches int
}

func (f *fakeStore) FGetObject(_ context.Context, _, _, filePath string, _ minio.GetObjectOptions) error {
	f.fetches++
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(filePath, []byte(f.content), 0o644)
}

func newTestLoader(t *testing.T, cfg config.KubernetesConfig, store objectStore) *Loader {
	t.Helper()
	return &Loader{cfg: cfg, store: store, logger: logging.NewLogger("error"), cacheDir: t.TempDir()}
}

func TestResolveLocalPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kubeconfig")
	require.NoError(t, os.WriteFile(path, []byte(validKubeconfig), 0o600))

	l := newTestLoader(t, config.KubernetesConfig{KubeconfigPath: path}, nil)
	got, err := l.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestResolveFromObjectStore(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	store := &fakeStore{content: validKubeconfig}
	cfg := config.KubernetesConfig{S3Bucket: "configs", S3KubeconfigKey: "kubeconfigs/main"}

	l := newTestLoader(t, cfg, store)
	got, err := l.Resolve(context.Background())
	require.NoError(t, err)

	info, err := os.Stat(got)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	assert.Equal(t, 1, store.fetches)
}

func TestResolveNothingFound(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	l := newTestLoader(t, config.KubernetesConfig{}, nil)
	_, err := l.Resolve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no kubeconfig found")
}

func TestForClusterDownloads(t *testing.T) {
	store := &fakeStore{content: validKubeconfig}
	l := newTestLoader(t, config.KubernetesConfig{S3Bucket: "configs"}, store)

	got, err := l.ForCluster(context.Background(), "prod-cluster")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(l.cacheDir, "prod-cluster"), got)

	info, err := os.Stat(got)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestForClusterUsesValidCache(t *testing.T) {
	store := &fakeStore{content: validKubeconfig}
	l := newTestLoader(t, config.KubernetesConfig{S3Bucket: "configs"}, store)
	require.NoError(t, os.WriteFile(filepath.Join(l.cacheDir, "prod"), []byte(validKubeconfig), 0o600))

	_, err := l.ForCluster(context.Background(), "prod")
	require.NoError(t, err)
	assert.Equal(t, 0, store.fetches)
}

func TestForClusterRedownloadsInvalidCache(t *testing.T) {
	store := &fakeStore{content: validKubeconfig}
	l := newTestLoader(t, config.KubernetesConfig{S3Bucket: "configs"}, store)
	require.NoError(t, os.WriteFile(filepath.Join(l.cacheDir, "prod"), []byte("{not yaml: ["), 0o600))

	got, err := l.ForCluster(context.Background(), "prod")
	require.NoError(t, err)
	assert.Equal(t, 1, store.fetches)

	data, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, validKubeconfig, string(data))
}

func TestForClusterDownloadError(t *testing.T) {
	store := &fakeStore{err: fmt.Errorf("access denied")}
	l := newTestLoader(t, config.KubernetesConfig{S3Bucket: "configs"}, store)

	_, err := l.ForCluster(context.Background(), "prod")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cluster prod")
}

func TestForClusterRequiresBucket(t *testing.T) {
	l := newTestLoader(t, config.KubernetesConfig{}, nil)
	_, err := l.ForCluster(context.Background(), "prod")
	require.Error(t, err)
}

func TestSplitEndpoint(t *testing.T) {
	host, secure, err := splitEndpoint("https://minio.internal:9000")
	require.NoError(t, err)
	assert.Equal(t, "minio.internal:9000", host)
	assert.True(t, secure)

	host, secure, err = splitEndpoint("http://localhost:9000")
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", host)
	assert.False(t, secure)

	host, secure, err = splitEndpoint("")
	require.NoError(t, err)
	assert.Equal(t, "s3.amazonaws.com", host)
	assert.True(t, secure)
}
