package models

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RolePharmacist Role = "pharmacist"
)

func ParseRole(value string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(value))); r {
	case RoleAdmin, RoleManager, RolePharmacist:
		return r, nil
	default:
		return "", fmt.Errorf("invalid role: %q", value)
	}
}

// UnmarshalBSONValue rejects roles outside the known set, so documents carrying
// a stale or mistyped role fail at decode time instead of in each consumer.
func (r *Role) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	if t != bsontype.String {
		return fmt.Errorf("cannot decode %s into Role", t)
	}
	var raw string
	if err := bson.UnmarshalValue(t, data, &raw); err != nil {
		return err
	}
	parsed, err := ParseRole(raw)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
