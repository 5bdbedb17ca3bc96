package mainconfig

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/fieldservice-scheduler/internal/config"
)

func TestLoadAWSConfigStaticCredentials(t *testing.T) {
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	cfg := &appconfig.Config{AWSRegion: "us-west-2", AWSAccessKeyID: "AKID", AWSSecretAccessKey: "secret"}

	awsCfg, err := LoadAWSConfig(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "us-west-2", awsCfg.Region)

	creds, err := awsCfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKID", creds.AccessKeyID)
}

func TestNeedsAWS(t *testing.T) {
	assert.False(t, NeedsAWS(&appconfig.Config{LLMProvider: "openai", EmailProvider: "sendgrid"}))
	assert.True(t, NeedsAWS(&appconfig.Config{LLMProvider: "bedrock"}))
	assert.True(t, NeedsAWS(&appconfig.Config{LLMProvider: "openai", LLMFallbackProvider: "bedrock"}))
	assert.True(t, NeedsAWS(&appconfig.Config{EmailProvider: "ses"}))
}
