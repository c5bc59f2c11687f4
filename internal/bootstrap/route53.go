package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
)

// Route53Config names the hosted-zone TXT record this ring's
// membership list is published under, an alternative to a static peer
// list for deployments where peers come and go.
type Route53Config struct {
	HostedZoneID string
	RecordName   string
	TTL          int64
}

// Route53 discovers and maintains ring membership as a single TXT
// record in a Route53 hosted zone, one quoted "host:port" value per
// known peer.
type Route53 struct {
	client *route53.Client
	cfg    Route53Config
}

// NewRoute53 builds a Route53 bootstrap using the ambient AWS
// credential chain (environment, shared config, instance profile).
func NewRoute53(cfg Route53Config) (*Route53, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = 30
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
	}
	return &Route53{client: route53.NewFromConfig(awsCfg), cfg: cfg}, nil
}

func (r *Route53) currentPeers(ctx context.Context) ([]string, error) {
	out, err := r.client.ListResourceRecordSets(ctx, &route53.ListResourceRecordSetsInput{
		HostedZoneId:    aws.String(r.cfg.HostedZoneID),
		StartRecordName: aws.String(r.cfg.RecordName),
		StartRecordType: types.RRTypeTxt,
		MaxItems:        aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: list record sets: %w", err)
	}
	for _, rrset := range out.ResourceRecordSets {
		if rrset.Type != types.RRTypeTxt || aws.ToString(rrset.Name) != dnsName(r.cfg.RecordName) {
			continue
		}
		peers := make([]string, 0, len(rrset.ResourceRecords))
		for _, rr := range rrset.ResourceRecords {
			peers = append(peers, strings.Trim(aws.ToString(rr.Value), `"`))
		}
		return peers, nil
	}
	return nil, nil
}

func dnsName(name string) string {
	if strings.HasSuffix(name, ".") {
		return name
	}
	return name + "."
}

func (r *Route53) upsert(ctx context.Context, peers []string) error {
	records := make([]types.ResourceRecord, 0, len(peers))
	for _, p := range peers {
		records = append(records, types.ResourceRecord{Value: aws.String(`"` + p + `"`)})
	}
	_, err := r.client.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(r.cfg.HostedZoneID),
		ChangeBatch: &types.ChangeBatch{
			Changes: []types.Change{{
				Action: types.ChangeActionUpsert,
				ResourceRecordSet: &types.ResourceRecordSet{
					Name:            aws.String(r.cfg.RecordName),
					Type:            types.RRTypeTxt,
					TTL:             aws.Int64(r.cfg.TTL),
					ResourceRecords: records,
				},
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("bootstrap: upsert record set: %w", err)
	}
	return nil
}

// Discover returns the peer addresses currently published in the zone.
func (r *Route53) Discover(ctx context.Context) ([]string, error) {
	return r.currentPeers(ctx)
}

// Register adds selfAddr to the published peer set.
func (r *Route53) Register(ctx context.Context, selfAddr string) error {
	peers, err := r.currentPeers(ctx)
	if err != nil {
		return err
	}
	for _, p := range peers {
		if p == selfAddr {
			return nil
		}
	}
	return r.upsert(ctx, append(peers, selfAddr))
}

// Deregister removes selfAddr from the published peer set.
func (r *Route53) Deregister(ctx context.Context, selfAddr string) error {
	peers, err := r.currentPeers(ctx)
	if err != nil {
		return err
	}
	remaining := peers[:0]
	for _, p := range peers {
		if p != selfAddr {
			remaining = append(remaining, p)
		}
	}
	if len(remaining) == 0 {
		_, err := r.client.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
			HostedZoneId: aws.String(r.cfg.HostedZoneID),
			ChangeBatch: &types.ChangeBatch{
				Changes: []types.Change{{
					Action: types.ChangeActionDelete,
					ResourceRecordSet: &types.ResourceRecordSet{
						Name: aws.String(r.cfg.RecordName),
						Type: types.RRTypeTxt,
						TTL:  aws.Int64(r.cfg.TTL),
						ResourceRecords: []types.ResourceRecord{
							{Value: aws.String(`"` + selfAddr + `"`)},
						},
					},
				}},
			},
		})
		if err != nil {
			return fmt.Errorf("bootstrap: delete record set: %w", err)
		}
		return nil
	}
	return r.upsert(ctx, remaining)
}
