package fetch

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// openS3 reads s3://bucket/key. Credentials come from the standard AWS
// environment variables; without them requests are anonymous, which is
// enough for public registry buckets.
func (c *Client) openS3(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("s3 location %s must be s3://bucket/key", u)
	}

	out, err := c.s3Client().GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("getting s3 object %s/%s: %w", bucket, key, err)
	}
	return out.Body, nil
}

func (c *Client) s3Client() S3API {
	c.s3Once.Do(func() {
		if c.s3 != nil {
			return
		}
		opts := s3.Options{
			Region:      c.s3Region,
			Credentials: envCredentials(),
			HTTPClient:  c.httpClient,
		}
		if c.s3Endpoint != "" {
			opts.BaseEndpoint = aws.String(c.s3Endpoint)
			opts.UsePathStyle = true
		}
		c.s3 = s3.New(opts)
	})
	return c.s3
}

func envCredentials() aws.CredentialsProvider {
	id := os.Getenv("AWS_ACCESS_KEY_ID")
	secret := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if id == "" || secret == "" {
		return aws.AnonymousCredentials{}
	}
	creds := aws.Credentials{
		AccessKeyID:     id,
		SecretAccessKey: secret,
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "environment",
	}
	return aws.NewCredentialsCache(aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return creds, nil
	}))
}
