package database

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecrets struct {
	value *string
	err   error
	asked string
}

func (f *fakeSecrets) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.asked = aws.ToString(params.SecretId)
	if f.err != nil {
		return nil, f.err
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: f.value}, nil
}

func TestLoadConfigFromSecret(t *testing.T) {
	client := &fakeSecrets{value: aws.String(`{"host":"db.internal","port":"5433","username":"shop","password":"pw","dbname":"catalog","engine":"postgres"}`)}

	cfg, err := LoadConfigFromSecret(context.Background(), client, "shoppost/db")

	require.NoError(t, err)
	assert.Equal(t, "shoppost/db", client.asked)
	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, "5433", cfg.Port)
	assert.Equal(t, "shop", cfg.User)
	assert.Equal(t, "catalog", cfg.Database)
	assert.Equal(t, "require", cfg.SSLMode)
}

func TestLoadConfigFromSecret_Errors(t *testing.T) {
	tests := []struct {
		name   string
		client *fakeSecrets
		errMsg string
	}{
		{"lookup fails", &fakeSecrets{err: errors.New("AccessDenied")}, "failed to retrieve secret"},
		{"binary secret", &fakeSecrets{}, "has no string value"},
		{"bad json", &fakeSecrets{value: aws.String(`{`)}, "failed to parse secret JSON"},
		{"missing password", &fakeSecrets{value: aws.String(`{"host":"h","port":5432,"username":"u","dbname":"d"}`)}, "invalid database configuration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfigFromSecret(context.Background(), tt.client, "s")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestDBSecret_ConfigDefaultsPort(t *testing.T) {
	cfg, err := DBSecret{Host: "h", Username: "u", Password: "p", Database: "d", SSLMode: "disable"}.Config()

	require.NoError(t, err)
	assert.Equal(t, "5432", cfg.Port)
	assert.Equal(t, "disable", cfg.SSLMode)
}

func TestPortType_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		input   string
		want    PortType
		wantErr bool
	}{
		{`5432`, 5432, false},
		{`"5432"`, 5432, false},
		{`"abc"`, 0, true},
		{`true`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var p PortType
			err := json.Unmarshal([]byte(tt.input), &p)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p)
		})
	}
}
