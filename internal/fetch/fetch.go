// Package fetch resolves a remote or local document reference into a file
// inside a request's workdir. Supported schemes:
//   - s3://bucket/key (AWS SDK v2, default credential chain)
//   - http:// and https://
//   - file://path and bare filesystem paths
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// Kind classifies a document reference.
type Kind int

const (
	KindLocal Kind = iota
	KindHTTP
	KindS3
)

// Classify determines how a reference will be resolved. file:// and bare
// paths are both local.
func Classify(ref string) Kind {
	switch {
	case strings.HasPrefix(ref, "s3://"):
		return KindS3
	case strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://"):
		return KindHTTP
	default:
		return KindLocal
	}
}

// SplitS3 splits s3://bucket/key into its parts.
func SplitS3(ref string) (bucket, key string, err error) {
	path := strings.TrimPrefix(ref, "s3://")
	slash := strings.Index(path, "/")
	if slash <= 0 || slash == len(path)-1 {
		return "", "", fmt.Errorf("invalid s3 url: %s", ref)
	}
	return path[:slash], path[slash+1:], nil
}

// ToFile materializes ref as destPath. Local references are copied so the
// caller always owns a file inside its own workdir.
func ToFile(ctx context.Context, ref, destPath string) error {
	// Strip optional #page fragment if present
	if i := strings.Index(ref, "#"); i >= 0 {
		ref = ref[:i]
	}
	switch Classify(ref) {
	case KindS3:
		return downloadS3(ctx, ref, destPath)
	case KindHTTP:
		return downloadHTTP(ctx, ref, destPath)
	default:
		return copyLocal(strings.TrimPrefix(ref, "file://"), destPath)
	}
}

func downloadHTTP(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return fmt.Errorf("http %d", resp.StatusCode)
	}
	f, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return err
	}
	return nil
}

func downloadS3(ctx context.Context, s3url, destPath string) error {
	bucket, key, err := SplitS3(s3url)
	if err != nil {
		return err
	}

	cfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return err
	}
	cli := s3.NewFromConfig(cfg)
	dl := manager.NewDownloader(cli)

	f, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := dl.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		return err
	}
	log.Info().Str("bucket", bucket).Str("key", key).Str("file", filepath.Base(destPath)).Msg("downloaded s3 document")
	return nil
}

func copyLocal(src, destPath string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(destPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
