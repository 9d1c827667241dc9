package redis

import (
	"context"
	"reflect"

	"github.com/redis/go-redis/v9"
)

// structFields flattens a struct into field/value pairs keyed by its redis tags.
// Nil pointer fields are skipped.
func structFields(value any) []any {
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	t := v.Type()
	fields := make([]any, 0, 2*v.NumField())

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		tag := t.Field(i).Tag.Get("redis")
		if tag == "" {
			tag = t.Field(i).Name
		}

		if field.Kind() == reflect.Ptr {
			if field.IsNil() {
				continue
			}
			field = field.Elem()
		}

		fields = append(fields, tag, field.Interface())
	}

	return fields
}

func (r repo) HSetStruct(ctx context.Context, c redis.Pipeliner, key string, value any) error {
	return c.HSet(ctx, key, structFields(value)...).Err()
}

func (r repo) executePipe(ctx context.Context, pipe redis.Pipeliner) error {
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		for _, cmd := range cmds {
			if err := cmd.Err(); err != nil {
				return err
			}
		}

		return err
	}

	return nil
}
