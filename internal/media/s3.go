package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const profilePictureFolder = "profile-pictures"

var errMissingBucket = errors.New("media.s3.missing_bucket")

// S3Config addresses the bucket that hosts profile pictures. Endpoint and the
// static credentials are optional; when the credentials are empty the default
// AWS credential chain applies.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader stores data URI pictures as objects and returns their public URL.
type S3Uploader struct {
	client        objectPutter
	bucket        string
	publicBaseURL string
	newKey        func(userID string, image Image) string
}

// NewS3Uploader loads the AWS configuration and builds the S3 client.
func NewS3Uploader(ctx context.Context, configuration S3Config) (*S3Uploader, error) {
	if strings.TrimSpace(configuration.Bucket) == "" {
		return nil, errMissingBucket
	}
	options := []func(*config.LoadOptions) error{config.WithRegion(configuration.Region)}
	if configuration.AccessKeyID != "" {
		options = append(options, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			configuration.AccessKeyID,
			configuration.SecretAccessKey,
			"",
		)))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("media.s3.config: %w", err)
	}
	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if configuration.Endpoint != "" {
			o.BaseEndpoint = aws.String(configuration.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Uploader(client, configuration), nil
}

func newS3Uploader(client objectPutter, configuration S3Config) *S3Uploader {
	return &S3Uploader{
		client:        client,
		bucket:        configuration.Bucket,
		publicBaseURL: publicBaseURL(configuration),
		newKey:        profilePictureKey,
	}
}

// UploadProfilePicture stores a data URI picture. Sources that are already
// URLs are returned unchanged.
func (uploader *S3Uploader) UploadProfilePicture(ctx context.Context, userID string, source string) (string, error) {
	if !IsDataURI(source) {
		return source, nil
	}
	image, err := ParseDataURI(source)
	if err != nil {
		return "", err
	}
	key := uploader.newKey(userID, image)
	_, err = uploader.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(uploader.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(image.Data),
		ContentType:   aws.String(image.ContentType),
		ContentLength: aws.Int64(int64(len(image.Data))),
	})
	if err != nil {
		return "", fmt.Errorf("media.s3.put: %w", err)
	}
	return uploader.publicBaseURL + "/" + key, nil
}

func profilePictureKey(userID string, image Image) string {
	return fmt.Sprintf("%s/%s-%s.%s", profilePictureFolder, userID, uuid.NewString(), image.Extension())
}

func publicBaseURL(configuration S3Config) string {
	if configuration.PublicBaseURL != "" {
		return strings.TrimRight(configuration.PublicBaseURL, "/")
	}
	if configuration.Endpoint != "" {
		return strings.TrimRight(configuration.Endpoint, "/") + "/" + configuration.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", configuration.Bucket, configuration.Region)
}
