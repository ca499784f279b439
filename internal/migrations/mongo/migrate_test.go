package mongo

import (
	"reflect"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	bookingrepo "shelterbook/internal/bookings/repository"
	shelterrepo "shelterbook/internal/shelters/repository"
	"shelterbook/pkg/model"
)

func bsonFields(v any) map[string]bool {
	fields := make(map[string]bool)
	t := reflect.TypeOf(v)
	for i := 0; i < t.NumField(); i++ {
		name := strings.Split(t.Field(i).Tag.Get("bson"), ",")[0]
		if name != "" && name != "-" {
			fields[name] = true
		}
	}
	return fields
}

func TestCollections_MatchRepositories(t *testing.T) {
	collections := Collections()
	for _, name := range []string{shelterrepo.CollectionName, bookingrepo.CollectionName} {
		if _, ok := collections[name]; !ok {
			t.Errorf("collection %s has no migration", name)
		}
	}
}

func TestValidators_ReferenceModelFields(t *testing.T) {
	tests := []struct {
		collection string
		model      any
	}{
		{SheltersCollection, model.Shelter{}},
		{BookingsCollection, model.Booking{}},
	}

	for _, tt := range tests {
		t.Run(tt.collection, func(t *testing.T) {
			fields := bsonFields(tt.model)
			schema := Collections()[tt.collection].Validator["$jsonSchema"].(bson.M)

			for _, req := range schema["required"].([]string) {
				if !fields[req] {
					t.Errorf("required field %q is not stored by the model", req)
				}
			}
			for prop := range schema["properties"].(bson.M) {
				if !fields[prop] {
					t.Errorf("schema property %q is not stored by the model", prop)
				}
			}
		})
	}
}

func TestIndexes_CoverAdmissionQuery(t *testing.T) {
	keys := BookingsIndexes[0].Keys.(bson.D)
	want := []string{"shelter_id", "status", "start_time", "end_time"}
	if len(keys) != len(want) {
		t.Fatalf("expected %d keys, got %d", len(want), len(keys))
	}
	for i, k := range keys {
		if k.Key != want[i] {
			t.Errorf("key %d: expected %s, got %s", i, want[i], k.Key)
		}
	}
}
