// Package cloudinventory implements the "cloud_inventory" tool type:
// enumerating storage inventory (buckets and their recent objects) for
// deploy/dependency hypotheses that need to confirm what artifact or
// config version is actually live. Client construction is grounded on
// the teacher pack's aws-sdk-go-v2 usage for its own S3-backed artifact
// store (internal/artifacts/s3_store.go).
package cloudinventory

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/sreinvestigator/investigator/pkg/tool"
)

// Config configures the cloud_inventory tool's AWS client.
type Config struct {
	Name   string
	Region string
}

// Tool lists S3 buckets and recent objects as a proxy for deployment
// artifact inventory.
type Tool struct {
	name   string
	client *s3.Client
}

// New constructs the cloud_inventory tool, loading AWS credentials from
// the standard provider chain (environment, shared config, IMDS).
func New(ctx context.Context, cfg Config) (*Tool, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("cloudinventory: loading aws config: %w", err)
	}
	return &Tool{name: cfg.Name, client: s3.NewFromConfig(awsCfg)}, nil
}

func (t *Tool) Name() string        { return t.name }
func (t *Tool) Description() string { return "Lists storage buckets and recent objects, for confirming which deployment artifact or config version is live." }

func (t *Tool) ParametersSchema() tool.Schema {
	return tool.Schema{
		Params: []tool.ParamSpec{
			{Name: "bucket", Type: tool.ParamString, Required: false, Description: "bucket to list objects from; omit to list all accessible buckets"},
			{Name: "prefix", Type: tool.ParamString, Required: false, Description: "object key prefix filter"},
		},
	}
}

// Execute lists buckets, or objects within one bucket when "bucket" is given.
func (t *Tool) Execute(ctx context.Context, args map[string]any) (*tool.Result, error) {
	bucket, _ := args["bucket"].(string)
	if bucket == "" {
		out, err := t.client.ListBuckets(ctx, &s3.ListBucketsInput{})
		if err != nil {
			return &tool.Result{Error: fmt.Sprintf("listing buckets: %v", err)}, nil
		}
		names := make([]string, 0, len(out.Buckets))
		for _, b := range out.Buckets {
			if b.Name != nil {
				names = append(names, *b.Name)
			}
		}
		return &tool.Result{Content: map[string]any{"buckets": names}}, nil
	}

	prefix, _ := args["prefix"].(string)
	input := &s3.ListObjectsV2Input{Bucket: &bucket}
	if prefix != "" {
		input.Prefix = &prefix
	}
	out, err := t.client.ListObjectsV2(ctx, input)
	if err != nil {
		return &tool.Result{Error: fmt.Sprintf("listing objects in %s: %v", bucket, err)}, nil
	}
	objects := make([]map[string]any, 0, len(out.Contents))
	for _, o := range out.Contents {
		entry := map[string]any{}
		if o.Key != nil {
			entry["key"] = *o.Key
		}
		if o.LastModified != nil {
			entry["lastModified"] = o.LastModified.Format("2006-01-02T15:04:05Z07:00")
		}
		entry["size"] = o.Size
		objects = append(objects, entry)
	}
	return &tool.Result{Content: map[string]any{"bucket": bucket, "objects": objects}}, nil
}
