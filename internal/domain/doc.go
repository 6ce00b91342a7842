// Package domain contains the core model for the tester.
//
// The domain is transport- and persistence-agnostic: it does not depend on
// YAML parsing, SSH, S3, AMQP, SQL drivers, or the filesystem. Infra adapters
// map into/from these types.
package domain
