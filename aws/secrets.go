// Package aws defines functions used to interact with the AWS API
package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"
	"github.com/spf13/viper"
)

type getSecretValueAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsClient reads secrets from AWS Secrets Manager
type SecretsClient struct {
	C getSecretValueAPI
}

// NewSecrets builds a client from the secrets.aws.* config keys. Empty static
// credentials fall back to the default AWS credential chain.
func NewSecrets(ctx context.Context) (*SecretsClient, error) {
	var opts []func(*config.LoadOptions) error

	if key := viper.GetString("secrets.aws.access_key"); key != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			key,
			viper.GetString("secrets.aws.secret_access_key"),
			"",
		)))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	client := secretsmanager.NewFromConfig(cfg, func(o *secretsmanager.Options) {
		o.Region = viper.GetString("secrets.aws.region")
	})

	return &SecretsClient{C: client}, nil
}

func (s *SecretsClient) Fetch(ctx context.Context, name string) (string, error) {
	out, err := s.C.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		var apiErr smithy.APIError

		if errors.As(err, &apiErr) {
			if apiErr.ErrorCode() == "ResourceNotFoundException" {
				return "", fmt.Errorf("secret '%s' does not exist", name)
			}
		}

		return "", fmt.Errorf("failed to read secret %s, %w", name, err)
	}

	if out.SecretString == nil {
		return "", fmt.Errorf("secret '%s' has no string value", name)
	}

	return *out.SecretString, nil
}
