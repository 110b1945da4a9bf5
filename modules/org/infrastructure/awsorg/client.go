package awsorg

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/aws/aws-sdk-go-v2/service/organizations/types"
	"github.com/go-faster/errors"
	"golang.org/x/time/rate"

	"github.com/iota-uz/org-hierarchy/modules/org/domain/hierarchy"
	"github.com/iota-uz/org-hierarchy/pkg/configuration"
)

// API is the subset of *organizations.Client used by Client.
type API interface {
	ListRoots(ctx context.Context, params *organizations.ListRootsInput, optFns ...func(*organizations.Options)) (*organizations.ListRootsOutput, error)
	ListChildren(ctx context.Context, params *organizations.ListChildrenInput, optFns ...func(*organizations.Options)) (*organizations.ListChildrenOutput, error)
	DescribeAccount(ctx context.Context, params *organizations.DescribeAccountInput, optFns ...func(*organizations.Options)) (*organizations.DescribeAccountOutput, error)
	DescribeOrganizationalUnit(ctx context.Context, params *organizations.DescribeOrganizationalUnitInput, optFns ...func(*organizations.Options)) (*organizations.DescribeOrganizationalUnitOutput, error)
}

// Client implements hierarchy.Directory on top of AWS Organizations.
type Client struct {
	api      API
	pageSize int32
	limiter  *rate.Limiter
}

var _ hierarchy.Directory = (*Client)(nil)

type Option func(*Client)

// WithPageSize sets MaxResults for ListChildren; values outside 1..20 keep the service default.
func WithPageSize(n int32) Option {
	return func(c *Client) {
		if n >= 1 && n <= 20 {
			c.pageSize = n
		}
	}
}

// WithRateLimit spaces requests to at most rps per second; rps <= 0 disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

func New(api API, opts ...Option) *Client {
	c := &Client{api: api}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromOptions loads the default AWS credential chain and builds a Client.
func NewFromOptions(ctx context.Context, opts configuration.AWSOptions) (*Client, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
		config.WithRetryMaxAttempts(opts.MaxAttempts),
	}
	if opts.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(opts.Profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	return New(
		organizations.NewFromConfig(cfg),
		WithPageSize(opts.PageSize),
		WithRateLimit(opts.RequestsPerSecond),
	), nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// Root returns the first root of the organization.
func (c *Client) Root(ctx context.Context) (hierarchy.Root, error) {
	roots, err := c.Roots(ctx)
	if err != nil {
		return hierarchy.Root{}, err
	}
	if len(roots) == 0 {
		return hierarchy.Root{}, errors.Errorf("%w: organization has no root", hierarchy.ErrMalformedResponse)
	}
	return roots[0], nil
}

// Roots lists every root of the organization, draining pagination.
func (c *Client) Roots(ctx context.Context) ([]hierarchy.Root, error) {
	var out []hierarchy.Root
	p := organizations.NewListRootsPaginator(c.api, &organizations.ListRootsInput{})
	for p.HasMorePages() {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
		start := time.Now()
		page, err := p.NextPage(ctx)
		observe(opListRoots, start, err)
		if err != nil {
			return nil, err
		}
		for _, r := range page.Roots {
			if r.Id == nil || *r.Id == "" {
				return nil, errors.Errorf("%w: root without id", hierarchy.ErrMalformedResponse)
			}
			out = append(out, hierarchy.Root{ID: *r.Id, Name: aws.ToString(r.Name)})
		}
	}
	return out, nil
}

func (c *Client) ListChildren(ctx context.Context, parentID string, kind hierarchy.Kind, cursor string) (hierarchy.ChildPage, error) {
	var childType types.ChildType
	switch kind {
	case hierarchy.KindAccount:
		childType = types.ChildTypeAccount
	case hierarchy.KindOrganizationalUnit:
		childType = types.ChildTypeOrganizationalUnit
	default:
		return hierarchy.ChildPage{}, errors.Errorf("list children: unsupported kind %s", kind)
	}

	in := &organizations.ListChildrenInput{
		ParentId:  aws.String(parentID),
		ChildType: childType,
	}
	if cursor != "" {
		in.NextToken = aws.String(cursor)
	}
	if c.pageSize > 0 {
		in.MaxResults = aws.Int32(c.pageSize)
	}

	if err := c.wait(ctx); err != nil {
		return hierarchy.ChildPage{}, err
	}
	start := time.Now()
	out, err := c.api.ListChildren(ctx, in)
	observe(opListChildren, start, err)
	if err != nil {
		return hierarchy.ChildPage{}, err
	}
	if out == nil {
		return hierarchy.ChildPage{}, errors.Errorf("%w: empty ListChildren output", hierarchy.ErrMalformedResponse)
	}

	page := hierarchy.ChildPage{
		Children:   make([]hierarchy.Child, 0, len(out.Children)),
		NextCursor: aws.ToString(out.NextToken),
	}
	for _, ch := range out.Children {
		child := hierarchy.Child{ID: aws.ToString(ch.Id)}
		if ch.Type != "" {
			k, err := hierarchy.ParseKind(string(ch.Type))
			if err != nil {
				return hierarchy.ChildPage{}, err
			}
			child.Kind = k
		}
		page.Children = append(page.Children, child)
	}
	return page, nil
}

func (c *Client) DescribeAccount(ctx context.Context, id string) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	start := time.Now()
	out, err := c.api.DescribeAccount(ctx, &organizations.DescribeAccountInput{AccountId: aws.String(id)})
	observe(opDescribeAccount, start, err)
	if err != nil {
		var nf *types.AccountNotFoundException
		if errors.As(err, &nf) {
			return "", &notFoundError{err: err}
		}
		return "", err
	}
	if out == nil || out.Account == nil {
		return "", nil
	}
	return aws.ToString(out.Account.Name), nil
}

func (c *Client) DescribeOrganizationalUnit(ctx context.Context, id string) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	start := time.Now()
	out, err := c.api.DescribeOrganizationalUnit(ctx, &organizations.DescribeOrganizationalUnitInput{OrganizationalUnitId: aws.String(id)})
	observe(opDescribeOU, start, err)
	if err != nil {
		var nf *types.OrganizationalUnitNotFoundException
		if errors.As(err, &nf) {
			return "", &notFoundError{err: err}
		}
		return "", err
	}
	if out == nil || out.OrganizationalUnit == nil {
		return "", nil
	}
	return aws.ToString(out.OrganizationalUnit.Name), nil
}

// notFoundError keeps the provider error intact while matching hierarchy.ErrNotFound.
type notFoundError struct {
	err error
}

func (e *notFoundError) Error() string { return e.err.Error() }

func (e *notFoundError) Unwrap() error { return e.err }

func (e *notFoundError) Is(target error) bool { return target == hierarchy.ErrNotFound }
