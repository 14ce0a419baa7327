package handler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	dErrors "charity/pkg/domain-errors"
)

type RequestsSuite struct {
	suite.Suite
}

func TestRequestsSuite(t *testing.T) {
	suite.Run(t, new(RequestsSuite))
}

func (s *RequestsSuite) TestRegisterProjectRequest() {
	s.Run("normalize trims whitespace", func() {
		req := &RegisterProjectRequest{Title: "  Well ", Description: "\tWater\n"}
		req.Normalize()
		s.Equal("Well", req.Title)
		s.Equal("Water", req.Description)
	})

	s.Run("whitespace-only title is missing after normalize", func() {
		req := &RegisterProjectRequest{Title: "   "}
		req.Normalize()
		err := req.Validate()
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("title length limit", func() {
		req := &RegisterProjectRequest{Title: strings.Repeat("a", 200)}
		s.NoError(req.Validate())
		req.Title += "a"
		err := req.Validate()
		s.Require().Error(err)
		s.Equal("title must be at most 200 characters", dErrors.MessageOf(err))
	})

	s.Run("nil request", func() {
		var req *RegisterProjectRequest
		req.Normalize()
		s.True(dErrors.HasCode(req.Validate(), dErrors.CodeBadRequest))
	})
}

func (s *RequestsSuite) TestDonateRequest() {
	amount := uint64(1)
	s.NoError((&DonateRequest{Amount: &amount}).Validate())

	zero := uint64(0)
	s.Equal("amount must be positive", dErrors.MessageOf((&DonateRequest{Amount: &zero}).Validate()))
	s.Equal("amount is required", dErrors.MessageOf((&DonateRequest{}).Validate()))
}
