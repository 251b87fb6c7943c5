package service

import (
	"errors"
	"testing"

	"github.com/sepich/image-cache/pkg/model"
	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	v := NewValidator(Limits{MaxWidth: 2000, MaxHeight: 1000})

	valid := []struct {
		width, height, quality *int
	}{
		{},
		{width: model.Int(1)},
		{width: model.Int(2000)},
		{height: model.Int(1000)},
		{quality: model.Int(1)},
		{quality: model.Int(100)},
		{width: model.Int(640), height: model.Int(480), quality: model.Int(75)},
	}
	for _, tC := range valid {
		assert.NoError(t, v.Validate(tC.width, tC.height, tC.quality))
	}

	invalid := []struct {
		name                   string
		width, height, quality *int
	}{
		{name: "width 0", width: model.Int(0)},
		{name: "width over max", width: model.Int(2001)},
		{name: "height over configured max", height: model.Int(1001)},
		{name: "height negative", height: model.Int(-5)},
		{name: "quality 0", quality: model.Int(0)},
		{name: "quality 101", quality: model.Int(101)},
	}
	for _, tC := range invalid {
		t.Run(tC.name, func(t *testing.T) {
			err := v.Validate(tC.width, tC.height, tC.quality)
			assert.True(t, errors.Is(err, ErrInvalidParameters), "got %v", err)
		})
	}
}

func TestServiceErrorIs(t *testing.T) {
	err := &ServiceError{Kind: KindImageNotFound, Message: "a.png"}

	assert.True(t, errors.Is(err, ErrImageNotFound))
	assert.False(t, errors.Is(err, ErrProcessingFailed))
	assert.Equal(t, "image not found: a.png", err.Error())
	assert.Equal(t, KindProcessingFailed, KindOf(errors.New("other")))
}
