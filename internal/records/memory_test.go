package records

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStoreCustomers(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	ana := store.AddCustomer(Customer{Phone: "+1", Name: "Ana"})
	store.AddCustomer(Customer{Phone: "+2", Name: "Bo"})

	found, err := store.FindByPhone(ctx, "+1")
	require.NoError(t, err)
	assert.Equal(t, ana.ID, found.ID)

	_, err = store.FindByPhone(ctx, "+9")
	assert.ErrorIs(t, err, ErrCustomerNotFound)

	require.NoError(t, store.UpdateCustomer(ctx, ana.ID, StatePatch("scheduled")))
	found, _ = store.FindByPhone(ctx, "+1")
	assert.Equal(t, "scheduled", found.State)
	assert.False(t, found.Contacted)

	found.State = "mutated"
	again, _ := store.FindByPhone(ctx, "+1")
	assert.Equal(t, "scheduled", again.State)

	all, err := store.ListCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Bo", all[1].Name)

	assert.ErrorIs(t, store.UpdateCustomer(ctx, "nope", StatePatch("")), ErrCustomerNotFound)
}

func TestInMemoryStoreTechniciansKeepOrderAndCopy(t *testing.T) {
	store := NewInMemoryStore()
	store.AddTechnician(Technician{Name: "B", Capabilities: map[string]string{"Boiler": "si"}})
	store.AddTechnician(Technician{Name: "A"})

	techs, err := store.ListTechnicians(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "B", techs[0].Name)

	techs[0].Capabilities["Boiler"] = "no"
	again, _ := store.ListTechnicians(context.Background())
	assert.True(t, again[0].Supports("Boiler"))
}

func TestInMemoryStoreAppointments(t *testing.T) {
	store := NewInMemoryStore()
	appt := Appointment{Phone: "+1", TechnicianName: "Luis", Slot: SlotFor("2025-05-14", "09:00 - 10:00")}
	require.NoError(t, store.InsertAppointment(context.Background(), &appt))
	assert.NotEmpty(t, appt.ID)
	assert.False(t, appt.CreatedAt.IsZero())

	assert.ErrorIs(t, store.InsertAppointment(context.Background(), &Appointment{Phone: "+1", TechnicianName: "Luis"}), ErrInvalidAppointment)

	all, err := store.ListAppointments(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "2025-05-14", all[0].Date())
}

func TestTechnicianSupports(t *testing.T) {
	tech := Technician{Capabilities: map[string]string{
		"Boiler Repair": " Sí ",
		"AC Install":    "no",
		"Heat Pump":     "X",
		"Plumbing":      "",
	}}
	assert.True(t, tech.Supports("Boiler Repair"))
	assert.True(t, tech.Supports("boiler repair"))
	assert.True(t, tech.Supports("Heat Pump"))
	assert.False(t, tech.Supports("AC Install"))
	assert.False(t, tech.Supports("Plumbing"))
	assert.False(t, tech.Supports("Roofing"))
	assert.False(t, tech.Supports(""))
}
