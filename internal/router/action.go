package router

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedAction возвращается для callback-токенов, которые не могли
// быть сгенерированы этой системой. Роутер отбрасывает их молча.
var ErrMalformedAction = errors.New("malformed action token")

// Verb описывает глагол действия из callback-токена.
type Verb string

const (
	VerbApprove Verb = "approve"
	VerbReject  Verb = "reject"
	VerbConfirm Verb = "confirm"
	VerbPrepare Verb = "prepare"
	VerbReady   Verb = "ready"
	VerbDeliver Verb = "deliver"
	VerbCancel  Verb = "cancel"
	VerbSend    Verb = "send"
	VerbOpen    Verb = "open"
)

// Entity описывает сущность, к которой относится действие.
type Entity string

const (
	EntityBooking  Entity = "booking"
	EntityOrder    Entity = "order"
	EntityLocation Entity = "location"
	EntityPayment  Entity = "payment"
	EntityCategory Entity = "category"
)

// Action — разобранный callback-токен вида «глагол:сущность:идентификатор».
// Значение эфемерно и служит только для диспетчеризации.
type Action struct {
	Verb   Verb
	Entity Entity
	ID     string
}

// knownActions — закрытый набор допустимых пар (глагол, сущность).
var knownActions = map[Verb]map[Entity]bool{
	VerbApprove: {EntityBooking: true},
	VerbReject:  {EntityBooking: true},
	VerbConfirm: {EntityOrder: true},
	VerbPrepare: {EntityOrder: true},
	VerbReady:   {EntityOrder: true},
	VerbDeliver: {EntityOrder: true},
	VerbCancel:  {EntityOrder: true},
	VerbSend:    {EntityLocation: true, EntityPayment: true},
	VerbOpen:    {EntityCategory: true},
}

// ParseAction разбирает callback-токен. Токен обязан состоять ровно из трёх
// частей, а пара (глагол, сущность) — входить в закрытый набор действий.
func ParseAction(token string) (Action, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 3 {
		return Action{}, fmt.Errorf("%w: %q", ErrMalformedAction, token)
	}

	verb, entity, id := Verb(parts[0]), Entity(parts[1]), parts[2]
	if id == "" {
		return Action{}, fmt.Errorf("%w: empty id in %q", ErrMalformedAction, token)
	}
	if !knownActions[verb][entity] {
		return Action{}, fmt.Errorf("%w: unknown pair %s:%s", ErrMalformedAction, verb, entity)
	}

	return Action{Verb: verb, Entity: entity, ID: id}, nil
}

// Token собирает callback-токен действия.
func (a Action) Token() string {
	return string(a.Verb) + ":" + string(a.Entity) + ":" + a.ID
}
