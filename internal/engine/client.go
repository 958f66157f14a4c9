package engine

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/redshiftdata"
)

// Client — интерфейс асинхронного движка выполнения.
//
// Submit отправляет одно SQL-выражение и сразу возвращает идентификатор,
// не дожидаясь завершения. Describe возвращает текущий статус выражения
// и текст ошибки (непустой только для FAILED/ABORTED).
type Client interface {
	Submit(ctx context.Context, sql string) (string, error)
	Describe(ctx context.Context, id string) (Status, string, error)
}

// RedshiftConfig — параметры подключения к кластеру Redshift.
type RedshiftConfig struct {
	// ClusterIdentifier — идентификатор кластера.
	ClusterIdentifier string

	// Database — имя базы данных.
	Database string

	// SecretARN — ARN секрета с учётными данными.
	SecretARN string
}

// RedshiftClient — реализация Client поверх Redshift Data API.
type RedshiftClient struct {
	api *redshiftdata.Client
	cfg RedshiftConfig
}

// NewRedshiftClient создаёт клиент движка поверх Redshift Data API.
func NewRedshiftClient(api *redshiftdata.Client, cfg RedshiftConfig) *RedshiftClient {
	return &RedshiftClient{api: api, cfg: cfg}
}

// Submit отправляет выражение в движок и возвращает идентификатор запроса.
func (c *RedshiftClient) Submit(ctx context.Context, sql string) (string, error) {
	out, err := c.api.ExecuteStatement(ctx, &redshiftdata.ExecuteStatementInput{
		ClusterIdentifier: aws.String(c.cfg.ClusterIdentifier),
		Database:          aws.String(c.cfg.Database),
		SecretArn:         aws.String(c.cfg.SecretARN),
		Sql:               aws.String(sql),
		WithEvent:         aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmit, err)
	}
	return aws.ToString(out.Id), nil
}

// Describe возвращает статус выражения и текст ошибки движка.
func (c *RedshiftClient) Describe(ctx context.Context, id string) (Status, string, error) {
	out, err := c.api.DescribeStatement(ctx, &redshiftdata.DescribeStatementInput{
		Id: aws.String(id),
	})
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrDescribe, err)
	}
	return Status(out.Status), aws.ToString(out.Error), nil
}
