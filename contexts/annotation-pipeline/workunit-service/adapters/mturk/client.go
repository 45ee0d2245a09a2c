package mturkadapter

import (
	"context"
	"errors"
	"fmt"

	"hitloop/contexts/annotation-pipeline/workunit-service/ports"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/mturk"
	"github.com/aws/aws-sdk-go-v2/service/mturk/types"
)

const (
	sandboxEndpoint    = "https://mturk-requester-sandbox.us-east-1.amazonaws.com"
	productionEndpoint = "https://mturk-requester.us-east-1.amazonaws.com"
	defaultRegion      = "us-east-1"
	listPageSize       = 100
)

// Config selects the marketplace universe and credentials. Sandbox and
// production are entirely separate universes; the flag picks the
// endpoint unless an explicit override is given. Static credentials are
// optional, the default AWS provider chain applies when they are blank.
type Config struct {
	Sandbox         bool
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Client implements ports.MarketplaceClient against the Mechanical Turk
// requester API.
type Client struct {
	api *mturk.Client
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = productionEndpoint
		if cfg.Sandbox {
			endpoint = sandboxEndpoint
		}
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if cfg.AccessKeyID != "" {
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	api := mturk.NewFromConfig(awsCfg, func(o *mturk.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	return &Client{api: api}, nil
}

func (c *Client) CreateWorkUnit(ctx context.Context, params ports.CreateWorkUnitParams) (string, error) {
	out, err := c.api.CreateHIT(ctx, &mturk.CreateHITInput{
		Title:                       aws.String(params.Title),
		Description:                 aws.String(params.Description),
		Keywords:                    aws.String(params.Keywords),
		Reward:                      aws.String(params.Reward),
		MaxAssignments:              aws.Int32(int32(params.MaxSubmitters)),
		LifetimeInSeconds:           aws.Int64(int64(params.Lifetime.Seconds())),
		AssignmentDurationInSeconds: aws.Int64(int64(params.AssignmentDuration.Seconds())),
		Question:                    aws.String(ExternalQuestionXML(params.ExternalURL, defaultFrameHeight)),
	})
	if err != nil {
		return "", fmt.Errorf("create hit: %w", err)
	}
	if out.HIT == nil || out.HIT.HITId == nil {
		return "", errors.New("create hit response missing hit id")
	}
	return aws.ToString(out.HIT.HITId), nil
}

func (c *Client) ListSubmissions(ctx context.Context, groupID string, statuses []string) ([]ports.RemoteSubmission, error) {
	remoteStatuses := make([]types.AssignmentStatus, 0, len(statuses))
	for _, status := range statuses {
		remoteStatuses = append(remoteStatuses, types.AssignmentStatus(status))
	}

	paginator := mturk.NewListAssignmentsForHITPaginator(c.api, &mturk.ListAssignmentsForHITInput{
		HITId:              aws.String(groupID),
		AssignmentStatuses: remoteStatuses,
		MaxResults:         aws.Int32(listPageSize),
	})

	var items []ports.RemoteSubmission
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list assignments for hit %s: %w", groupID, err)
		}
		for _, assignment := range page.Assignments {
			items = append(items, ports.RemoteSubmission{
				AssignmentID: aws.ToString(assignment.AssignmentId),
				SubmitterID:  aws.ToString(assignment.WorkerId),
				Status:       string(assignment.AssignmentStatus),
				Answer:       aws.ToString(assignment.Answer),
			})
		}
	}
	return items, nil
}
