package providers

import (
	"errors"
	"fmt"
	"github.com/gookit/validate"
	"instametrics/internal/structures"
	"time"
)

type CnfValidatorInterface interface {
	Validate() error
}

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) CnfValidatorInterface {
	return &CnfValidator{conf: conf}
}

func (cv *CnfValidator) Validate() error {
	v := validate.Struct(cv.conf)
	if !v.Validate() {
		return v.Errors.ErrOrNil()
	}
	if cv.conf.Cache.Enabled && cv.conf.Cache.Backend == "redis" && cv.conf.Cache.RedisAddr == "" {
		return errors.New("cache.redisAddr is required for the redis backend")
	}
	if cv.conf.Collector.Enabled {
		if _, err := time.Parse("15:04", cv.conf.Collector.At); err != nil {
			return fmt.Errorf("collector.at must be HH:MM, got %q", cv.conf.Collector.At)
		}
	}
	return nil
}
