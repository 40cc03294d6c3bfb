// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package database

import (
	"context"
	"database/sql/driver"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	rdsauth "github.com/aws/aws-sdk-go-v2/feature/rds/auth"
	"github.com/lib/pq"

	"github.com/tomtom215/audience-insights/internal/config"
)

// iamConnector opens Postgres connections authenticated with a fresh RDS IAM
// token. Tokens expire after 15 minutes, so one is built per connection.
type iamConnector struct {
	cfg    *config.DatabaseConfig
	region string
	creds  aws.CredentialsProvider
}

func newIAMConnector(cfg *config.DatabaseConfig, region string, creds aws.CredentialsProvider) *iamConnector {
	return &iamConnector{cfg: cfg, region: region, creds: creds}
}

// Connect implements driver.Connector.
func (c *iamConnector) Connect(ctx context.Context) (driver.Conn, error) {
	token, err := rdsauth.BuildAuthToken(ctx, c.cfg.Endpoint(), c.region, c.cfg.User, c.creds)
	if err != nil {
		return nil, fmt.Errorf("failed to build RDS auth token: %w", err)
	}
	connector, err := pq.NewConnector(c.cfg.PostgresDSN(token))
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres connector: %w", err)
	}
	return connector.Connect(ctx)
}

// Driver implements driver.Connector.
func (c *iamConnector) Driver() driver.Driver {
	return &pq.Driver{}
}
