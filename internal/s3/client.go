package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/eapache/go-resiliency/retrier"
	"github.com/samber/lo"

	"dco-creatives/internal"
	"dco-creatives/internal/logging"
)

// deleteBatch is the DeleteObjects limit per request.
const deleteBatch = 1000

type Client interface {
	PutBytes(ctx context.Context, key string, b []byte, meta Metadata) error
	PutFile(ctx context.Context, key, path string, meta Metadata) error
	Delete(ctx context.Context, key string) error
	DeleteMany(ctx context.Context, keys []string) error
	List(ctx context.Context, prefix string, recursive bool) ([]ObjectInfo, error)
	ListFolders(ctx context.Context, prefix string) ([]string, error)
	DeleteFolder(ctx context.Context, prefix string) error
	WriteJSON(ctx context.Context, key string, v any) error
	PublicURL(key string) string
}

type Metadata struct {
	ContentType        string
	ContentDisposition string
	CacheControl       string
}

type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ETag         string
}

type s3Client struct {
	bucket    string
	publicURL string
	api       *awss3.Client
	upl       *manager.Uploader
	retry     *retrier.Retrier
	log       *logging.Logger
}

func New(ctx context.Context, cfg internal.S3Config, log *logging.Logger) (Client, error) {
	endpoint := cfg.Endpoint
	forcePathStyle := !strings.Contains(endpoint, "amazonaws.com")

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		o.UsePathStyle = forcePathStyle
		o.BaseEndpoint = aws.String(endpoint)
	})

	public := cfg.PublicURL
	if public == "" {
		public = endpoint
	}

	return &s3Client{
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(public, "/"),
		api:       client,
		upl:       manager.NewUploader(client),
		retry:     newRetrier(cfg.Attempts, cfg.BaseDelay),
		log:       log,
	}, nil
}

// newRetrier allows attempts tries in total, waiting base, 2*base, ... in between.
func newRetrier(attempts int, base time.Duration) *retrier.Retrier {
	return retrier.New(retrier.ExponentialBackoff(attempts-1, base), nil)
}

func (c *s3Client) run(ctx context.Context, op, key string, work func(ctx context.Context) error) error {
	attempt := 0
	err := c.retry.RunCtx(ctx, func(ctx context.Context) error {
		attempt++
		err := work(ctx)
		if err != nil {
			c.log.Warnf("s3: %s %s attempt %d failed: %v", op, key, attempt, err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("s3 %s %s: %w", op, key, err)
	}
	return nil
}

func (c *s3Client) PutBytes(ctx context.Context, key string, b []byte, meta Metadata) error {
	return c.run(ctx, "put", key, func(ctx context.Context) error {
		_, err := c.api.PutObject(ctx, c.putInput(key, bytes.NewReader(b), int64(len(b)), meta))
		return err
	})
}

func (c *s3Client) PutFile(ctx context.Context, key, path string, meta Metadata) error {
	return c.run(ctx, "put", key, func(ctx context.Context) error {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		st, err := f.Stat()
		if err != nil {
			return err
		}
		_, err = c.upl.Upload(ctx, c.putInput(key, f, st.Size(), meta))
		return err
	})
}

func (c *s3Client) putInput(key string, body io.Reader, size int64, meta Metadata) *awss3.PutObjectInput {
	in := &awss3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
	}
	if meta.ContentType != "" {
		in.ContentType = aws.String(meta.ContentType)
	}
	if meta.ContentDisposition != "" {
		in.ContentDisposition = aws.String(meta.ContentDisposition)
	}
	if meta.CacheControl != "" {
		in.CacheControl = aws.String(meta.CacheControl)
	}
	return in
}

func (c *s3Client) Delete(ctx context.Context, key string) error {
	return c.run(ctx, "delete", key, func(ctx context.Context) error {
		_, err := c.api.DeleteObject(ctx, &awss3.DeleteObjectInput{Bucket: aws.String(c.bucket), Key: aws.String(key)})
		return err
	})
}

func (c *s3Client) DeleteMany(ctx context.Context, keys []string) error {
	for _, chunk := range lo.Chunk(keys, deleteBatch) {
		ids := lo.Map(chunk, func(k string, _ int) types.ObjectIdentifier {
			return types.ObjectIdentifier{Key: aws.String(k)}
		})
		err := c.run(ctx, "delete-many", chunk[0], func(ctx context.Context) error {
			out, err := c.api.DeleteObjects(ctx, &awss3.DeleteObjectsInput{
				Bucket: aws.String(c.bucket),
				Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
			})
			if err != nil {
				return err
			}
			if len(out.Errors) > 0 {
				e := out.Errors[0]
				return fmt.Errorf("%d objects not deleted, first %s: %s", len(out.Errors), aws.ToString(e.Key), aws.ToString(e.Message))
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *s3Client) List(ctx context.Context, prefix string, recursive bool) ([]ObjectInfo, error) {
	in := &awss3.ListObjectsV2Input{Bucket: aws.String(c.bucket), Prefix: aws.String(prefix)}
	if !recursive {
		in.Delimiter = aws.String("/")
	}
	var out []ObjectInfo
	p := awss3.NewListObjectsV2Paginator(c.api, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			out = append(out, ObjectInfo{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
				ETag:         aws.ToString(obj.ETag),
			})
		}
	}
	return out, nil
}

// ListFolders returns the immediate sub-prefixes of prefix, each ending in "/".
func (c *s3Client) ListFolders(ctx context.Context, prefix string) ([]string, error) {
	prefix = folderPrefix(prefix)
	var out []string
	p := awss3.NewListObjectsV2Paginator(c.api, &awss3.ListObjectsV2Input{
		Bucket:    aws.String(c.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list folders %s: %w", prefix, err)
		}
		for _, cp := range page.CommonPrefixes {
			out = append(out, aws.ToString(cp.Prefix))
		}
	}
	return out, nil
}

func (c *s3Client) DeleteFolder(ctx context.Context, prefix string) error {
	objs, err := c.List(ctx, folderPrefix(prefix), true)
	if err != nil {
		return err
	}
	if len(objs) == 0 {
		return nil
	}
	return c.DeleteMany(ctx, lo.Map(objs, func(o ObjectInfo, _ int) string { return o.Key }))
}

func (c *s3Client) WriteJSON(ctx context.Context, key string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return c.PutBytes(ctx, key, b, Metadata{ContentType: "application/json", CacheControl: "no-cache"})
}

func (c *s3Client) PublicURL(key string) string {
	return publicURL(c.publicURL, c.bucket, key)
}

func publicURL(base, bucket, key string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(base, "/"), bucket, strings.TrimLeft(key, "/"))
}

func folderPrefix(p string) string {
	if p == "" || strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}
