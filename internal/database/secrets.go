package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretValueGetter is the slice of the Secrets Manager API the loader needs
type SecretValueGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// DBSecret is the RDS-style credential document stored in Secrets Manager
type DBSecret struct {
	Host     string   `json:"host"`
	Port     PortType `json:"port"`
	Username string   `json:"username"`
	Password string   `json:"password"`
	Database string   `json:"dbname"`
	SSLMode  string   `json:"sslmode,omitempty"`
}

// PortType accepts a port written either as a JSON number or a JSON string
type PortType int

// UnmarshalJSON handles both string and int port values
func (p *PortType) UnmarshalJSON(data []byte) error {
	var intVal int
	if err := json.Unmarshal(data, &intVal); err == nil {
		*p = PortType(intVal)
		return nil
	}

	var strVal string
	if err := json.Unmarshal(data, &strVal); err == nil {
		intVal, err := strconv.Atoi(strVal)
		if err != nil {
			return fmt.Errorf("port string %q is not a valid integer: %w", strVal, err)
		}
		*p = PortType(intVal)
		return nil
	}

	return fmt.Errorf("port must be a string or integer, got: %s", string(data))
}

// Config converts the secret into a validated connection config
func (s DBSecret) Config() (*Config, error) {
	cfg := &Config{
		Host:     s.Host,
		Port:     strconv.Itoa(int(s.Port)),
		User:     s.Username,
		Password: s.Password,
		Database: s.Database,
		SSLMode:  s.SSLMode,
	}
	if s.Port == 0 {
		cfg.Port = "5432"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}
	return cfg, nil
}

// LoadConfigFromSecretsManager fetches database credentials using the default AWS credential chain
func LoadConfigFromSecretsManager(ctx context.Context, secretName string) (*Config, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return LoadConfigFromSecret(ctx, secretsmanager.NewFromConfig(awsCfg), secretName)
}

// LoadConfigFromSecret fetches and parses the named secret through the given client
func LoadConfigFromSecret(ctx context.Context, client SecretValueGetter, secretName string) (*Config, error) {
	result, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve secret %s: %w", secretName, err)
	}
	if result.SecretString == nil {
		return nil, fmt.Errorf("secret %s has no string value", secretName)
	}

	var secret DBSecret
	if err := json.Unmarshal([]byte(*result.SecretString), &secret); err != nil {
		return nil, fmt.Errorf("failed to parse secret JSON: %w", err)
	}

	return secret.Config()
}
