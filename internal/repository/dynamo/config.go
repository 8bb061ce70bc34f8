package dynamo

import "fmt"

type Mode string

const (
	// ModeLocal talks to DynamoDB Local with static credentials and creates
	// missing tables on startup.
	ModeLocal Mode = "local"
	// ModeAWS uses the default AWS credential chain.
	ModeAWS Mode = "aws"
)

type Config struct {
	Mode        Mode
	Endpoint    string
	Region      string
	TablePrefix string
}

func (c Config) Validate() error {
	switch c.Mode {
	case ModeLocal:
		if c.Endpoint == "" {
			return fmt.Errorf("dynamo: endpoint is required in local mode")
		}
	case ModeAWS:
	default:
		return fmt.Errorf("dynamo: unknown mode %q", c.Mode)
	}
	if c.Region == "" {
		return fmt.Errorf("dynamo: region is required")
	}
	return nil
}

// Tables holds the physical table names, derived from the prefix.
type Tables struct {
	Organizations string
	Branches      string
	Staff         string
	Accounts      string
	Ratings       string
	Uniques       string
}

func (c Config) Tables() Tables {
	return Tables{
		Organizations: c.TablePrefix + "organizations",
		Branches:      c.TablePrefix + "branches",
		Staff:         c.TablePrefix + "staff",
		Accounts:      c.TablePrefix + "accounts",
		Ratings:       c.TablePrefix + "ratings",
		Uniques:       c.TablePrefix + "uniques",
	}
}
