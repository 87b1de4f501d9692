package purekv

import (
	"fmt"

	"github.com/gasparian/smallcodes-go/store"
	pkv "github.com/gasparian/pure-kv-go/client"
)

// Client is the subset of pure-kv client calls used by the store and the sink
type Client interface {
	Open() error
	Close() error
	Create(bucket string) error
	Set(bucket, key string, val interface{}) error
	Get(bucket, key string) (interface{}, bool)
	MakeIterator(bucket string) error
	Next(bucket string) (interface{}, error)
}

// Config holds pure-kv server connection parameters
type Config struct {
	Address string
	Timeout int
}

type pkvClient struct {
	c *pkv.Client
}

var _ Client = (*pkvClient)(nil)

func (p *pkvClient) Open() error {
	return p.c.Open()
}

func (p *pkvClient) Close() error {
	return p.c.Close()
}

func (p *pkvClient) Create(bucket string) error {
	return p.c.Create(bucket)
}

func (p *pkvClient) Set(bucket, key string, val interface{}) error {
	return p.c.Set(bucket, key, val)
}

func (p *pkvClient) Get(bucket, key string) (interface{}, bool) {
	return p.c.Get(bucket, key)
}

func (p *pkvClient) MakeIterator(bucket string) error {
	return p.c.MakeIterator(bucket)
}

func (p *pkvClient) Next(bucket string) (interface{}, error) {
	_, val, err := p.c.Next(bucket)
	return val, err
}

// Dial opens connection to the pure-kv server
func Dial(config Config) (Client, error) {
	c := &pkvClient{c: pkv.New(config.Address, config.Timeout)}
	if err := c.Open(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", store.ErrConnection, config.Address, err)
	}
	return c, nil
}
