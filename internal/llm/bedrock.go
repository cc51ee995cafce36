package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/nikhilbhutani/promptlab/internal/models"
)

type BedrockProvider struct {
	client *bedrockruntime.Client
}

func NewBedrockProvider(client *bedrockruntime.Client) *BedrockProvider {
	return &BedrockProvider{client: client}
}

// newBedrockFromConfig builds a client from the configuration's static key
// pair and region. Without a key pair the default AWS credential chain is used.
func newBedrockFromConfig(ctx context.Context, mc models.ModelConfig) (Provider, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if mc.Region != "" {
		opts = append(opts, awsconfig.WithRegion(mc.Region))
	}
	if mc.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(mc.AccessKey, mc.SecretKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewBedrockProvider(bedrockruntime.NewFromConfig(cfg)), nil
}

func (p *BedrockProvider) Name() string { return models.ProviderBedrock }

func (p *BedrockProvider) Converse(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	maxTokens, temperature, topP := req.Params.Values()
	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(req.Model.ModelID),
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(int32(maxTokens)),
			Temperature: aws.Float32(float32(temperature)),
			TopP:        aws.Float32(float32(topP)),
		},
	}

	if len(req.Image) > 0 {
		input.Messages = []types.Message{{
			Role: types.ConversationRoleUser,
			Content: []types.ContentBlock{
				&types.ContentBlockMemberText{Value: req.Prompt},
				&types.ContentBlockMemberImage{Value: types.ImageBlock{
					Format: types.ImageFormat(req.ImageFormat),
					Source: &types.ImageSourceMemberBytes{Value: req.Image},
				}},
			},
		}}
	} else {
		input.System = []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: req.Prompt},
		}
		input.Messages = []types.Message{{
			Role:    types.ConversationRoleUser,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: req.UserInput}},
		}}
	}

	out, err := p.client.Converse(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("bedrock converse: %w", err)
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return nil, fmt.Errorf("bedrock converse: unexpected output %T", out.Output)
	}
	var text strings.Builder
	for _, block := range msg.Value.Content {
		if t, ok := block.(*types.ContentBlockMemberText); ok {
			text.WriteString(t.Value)
		}
	}

	res := &Result{Text: text.String()}
	if out.Usage != nil {
		res.InputTokens = int(aws.ToInt32(out.Usage.InputTokens))
		res.OutputTokens = int(aws.ToInt32(out.Usage.OutputTokens))
		res.TotalTokens = int(aws.ToInt32(out.Usage.TotalTokens))
	}
	if out.Metrics != nil && out.Metrics.LatencyMs != nil {
		res.LatencyMs = aws.ToInt64(out.Metrics.LatencyMs)
	} else {
		res.LatencyMs = time.Since(start).Milliseconds()
	}
	return res, nil
}
