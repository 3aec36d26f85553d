// Command local starts an ORB on a loopback port, registers a servant
// that increments a long and calls it once through the same ORB.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"

	"github.com/brodyxchen/giop"
	"github.com/brodyxchen/giop/cdr"
	"github.com/brodyxchen/giop/corba"
	"github.com/brodyxchen/giop/models"
	"github.com/brodyxchen/giop/protocols"
)

var logger = loggo.GetLogger("giop.local")

// counter implements the operation "increment(in long) -> long".
type counter struct{}

func (counter) MarshalArguments(op string, enc *cdr.Encoder, args []interface{}) error {
	enc.WriteLong(args[0].(int32))
	return nil
}

func (counter) UnmarshalArguments(op string, dec *cdr.Decoder) ([]interface{}, error) {
	v, err := dec.ReadLong()
	if err != nil {
		return nil, err
	}
	return []interface{}{v}, nil
}

func (counter) MarshalResult(op string, enc *cdr.Encoder, result interface{}, out []interface{}) error {
	enc.WriteLong(result.(int32))
	return nil
}

func (counter) UnmarshalResult(op string, dec *cdr.Decoder, args []interface{}) (interface{}, []interface{}, error) {
	v, err := dec.ReadLong()
	return v, nil, err
}

func (counter) MarshalUserException(op string, enc *cdr.Encoder, ex *corba.UserException) error {
	return nil
}

func (counter) UnmarshalUserException(op string, dec *cdr.Decoder, repoID string) (*corba.UserException, error) {
	return &corba.UserException{RepositoryID: repoID}, nil
}

func (counter) Invoke(ctx context.Context, req *models.ServerRequest) (*models.ServerReply, error) {
	if req.Operation != "increment" {
		return nil, corba.NewSystemException(corba.BadOperation, 0, corba.CompletedNo)
	}
	return &models.ServerReply{Result: req.Args[0].(int32) + 1}, nil
}

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	value := flag.Int("value", 42, "value to increment")
	flag.Parse()

	if err := run(*configPath, int32(*value)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string, value int32) error {
	cfg := &giop.Config{Endpoints: []giop.Endpoint{{Network: "tcp", Address: "127.0.0.1:0"}}}
	if configPath != "" {
		var err error
		if cfg, err = giop.ReadConfig(configPath); err != nil {
			return errors.Trace(err)
		}
	}
	orb, err := giop.NewORB(cfg, giop.Params{})
	if err != nil {
		return errors.Trace(err)
	}
	defer func() {
		if err := orb.Close(); err != nil {
			logger.Errorf("closing orb: %v", err)
		}
	}()

	key := []byte("counter")
	orb.Handle(key, counter{})
	if err := orb.Start(); err != nil {
		return errors.Trace(err)
	}
	addrs := orb.Addrs()
	if len(addrs) == 0 {
		return errors.New("no endpoint configured")
	}
	target, err := targetOf(orb, addrs[0].String(), key)
	if err != nil {
		return errors.Trace(err)
	}

	rsp, err := orb.Invoke(&models.Request{
		Target:    target,
		Operation: "increment",
		Args:      []interface{}{value},
		Mapping:   counter{},
	})
	if err != nil {
		return errors.Trace(err)
	}
	fmt.Printf("increment(%d) = %d over %s\n", value, rsp.Result, rsp.ConnName)
	return nil
}

func targetOf(orb *giop.ORB, address string, key []byte) (*models.Target, error) {
	ep := giop.Endpoint{Network: "tcp", Address: address}
	addr, err := ep.Addr()
	if err != nil {
		return nil, err
	}
	components, err := orb.Components()
	if err != nil {
		return nil, err
	}
	return &models.Target{
		Addr:       addr,
		ObjectKey:  key,
		Version:    protocols.V1_2,
		Components: components,
	}, nil
}
