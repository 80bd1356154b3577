// Package discovery finds resources by tag through the Resource Groups Tagging API.
package discovery

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
	tagtypes "github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi/types"
	"github.com/rs/zerolog/log"

	"github.com/yairfalse/snooze/internal/filter"
	"github.com/yairfalse/snooze/pkg/lifecycle"
)

// TaggingAPI defines the tagging operations used by the locator.
type TaggingAPI interface {
	GetResources(ctx context.Context, params *resourcegroupstaggingapi.GetResourcesInput, optFns ...func(*resourcegroupstaggingapi.Options)) (*resourcegroupstaggingapi.GetResourcesOutput, error)
}

// Locator resolves tag filters to resource ARNs.
type Locator struct {
	client  TaggingAPI
	exclude *filter.Filter
}

// New creates a Locator over the given tagging client.
func New(client TaggingAPI) *Locator {
	return &Locator{client: client}
}

// Exclude drops resources matched by f from every later Discover call.
// It must be set before the locator is used.
func (l *Locator) Exclude(f *filter.Filter) {
	l.exclude = f
}

// Discover returns the ARNs of every resource of typeTag matching all filters,
// in the order the API returns them. Pages are followed until exhausted.
func (l *Locator) Discover(ctx context.Context, typeTag lifecycle.ResourceTypeTag, filters []lifecycle.TagFilter) ([]string, error) {
	if err := lifecycle.ValidateFilters(filters); err != nil {
		return nil, err
	}

	input := &resourcegroupstaggingapi.GetResourcesInput{
		ResourceTypeFilters: []string{string(typeTag)},
		TagFilters:          toTagFilters(filters),
	}

	var arns []string
	for page := 1; ; page++ {
		output, err := l.client.GetResources(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("get resources %s: %w", typeTag, err)
		}

		for _, mapping := range output.ResourceTagMappingList {
			arn := aws.ToString(mapping.ResourceARN)
			if arn == "" {
				continue
			}
			if !l.exclude.IsEmpty() && !l.exclude.ShouldInclude(tagMap(mapping.Tags)) {
				log.Debug().Str("type", string(typeTag)).Str("resource", arn).Msg("excluded by tag")
				continue
			}
			arns = append(arns, arn)
		}

		if aws.ToString(output.PaginationToken) == "" {
			break
		}
		input.PaginationToken = output.PaginationToken
		log.Debug().Str("type", string(typeTag)).Int("page", page).Msg("following pagination token")
	}

	return arns, nil
}

func toTagFilters(filters []lifecycle.TagFilter) []tagtypes.TagFilter {
	if len(filters) == 0 {
		return nil
	}
	out := make([]tagtypes.TagFilter, 0, len(filters))
	for _, f := range filters {
		out = append(out, tagtypes.TagFilter{
			Key:    aws.String(f.Key),
			Values: append([]string(nil), f.Values...),
		})
	}
	return out
}

func tagMap(tags []tagtypes.Tag) map[string]string {
	m := make(map[string]string, len(tags))
	for _, t := range tags {
		m[aws.ToString(t.Key)] = aws.ToString(t.Value)
	}
	return m
}
