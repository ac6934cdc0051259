package service

import (
	"context"
	"errors"
	"testing"
)

func profileInput(nif string) BillingProfileInput {
	return BillingProfileInput{
		Name:    "Ana García",
		NIF:     nif,
		Address: "Calle Mayor 1",
		City:    "Madrid",
		IBAN:    "ES91 2100 0418 4502 0005 1332",
	}
}

func TestBillingProfileService(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewBillingProfileService(newMemStore(), discardLogger())

	first, err := svc.Create(ctx, testUser, profileInput("12345678Z"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !first.Active || first.IBAN != "ES9121000418450200051332" {
		t.Errorf("first profile = %+v, want active with normalized IBAN", first)
	}

	second, err := svc.Create(ctx, testUser, profileInput("X1234567L"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if second.Active {
		t.Error("second profile became active on create")
	}

	if _, err := svc.Activate(ctx, testUser, second.ID); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	active, err := svc.Active(ctx, testUser)
	if err != nil || active.ID != second.ID {
		t.Fatalf("Active() = %v, %v, want second profile", active, err)
	}

	if err := svc.Delete(ctx, testUser, second.ID); !errors.Is(err, ErrActiveProfileInUse) {
		t.Errorf("Delete() active profile error = %v, want ErrActiveProfileInUse", err)
	}
	if err := svc.Delete(ctx, testUser, first.ID); err != nil {
		t.Errorf("Delete() inactive profile error = %v", err)
	}

	bad := profileInput("12345678A")
	bad.IBAN = "ES92 2100 0418 4502 0005 1332"
	bad.Address = ""
	_, err = svc.Create(ctx, testUser, bad)
	fields := fieldsOf(t, err)
	for _, f := range []string{"nif", "iban", "direccion"} {
		if _, ok := fields[f]; !ok {
			t.Errorf("fields = %v, missing %s", fields, f)
		}
	}
}
