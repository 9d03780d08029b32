// Package identity talks to the identity provider that owns contractor
// credentials and verifies the access tokens it issues.
package identity

import (
	"context"
	"errors"
	"fmt"

	"naktender/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ctypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

type CognitoAPI interface {
	SignUp(ctx context.Context, params *cognitoidentityprovider.SignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.SignUpOutput, error)
	InitiateAuth(ctx context.Context, params *cognitoidentityprovider.InitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error)
	AdminDeleteUser(ctx context.Context, params *cognitoidentityprovider.AdminDeleteUserInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.AdminDeleteUserOutput, error)
}

// Session is the result of a successful password login.
type Session struct {
	AccessToken string
	ExpiresIn   int
}

type Cognito struct {
	client     CognitoAPI
	clientID   string
	userPoolID string
}

func NewCognito(client CognitoAPI, clientID, userPoolID string) *Cognito {
	return &Cognito{
		client:     client,
		clientID:   clientID,
		userPoolID: userPoolID,
	}
}

// SignUp registers a user and returns its subject.
func (c *Cognito) SignUp(ctx context.Context, username, password, email string) (string, error) {
	out, err := c.client.SignUp(ctx, &cognitoidentityprovider.SignUpInput{
		ClientId: aws.String(c.clientID),
		Username: aws.String(username),
		Password: aws.String(password),
		UserAttributes: []ctypes.AttributeType{
			{Name: aws.String("email"), Value: aws.String(email)},
		},
	})
	if err != nil {
		return "", mapSignUpError(err)
	}

	subject := aws.ToString(out.UserSub)
	if subject == "" {
		return "", errors.New("identity provider returned no subject")
	}

	return subject, nil
}

// DeleteUser removes a user created by a sign-up that could not be
// completed. Deleting a user that does not exist succeeds.
func (c *Cognito) DeleteUser(ctx context.Context, username string) error {
	_, err := c.client.AdminDeleteUser(ctx, &cognitoidentityprovider.AdminDeleteUserInput{
		UserPoolId: aws.String(c.userPoolID),
		Username:   aws.String(username),
	})
	if err != nil {
		var notFound *ctypes.UserNotFoundException
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to delete identity %s: %w", username, err)
	}

	return nil
}

// Login exchanges a username and password for an access token.
func (c *Cognito) Login(ctx context.Context, username, password string) (*Session, error) {
	resp, err := c.client.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: ctypes.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(c.clientID),
		AuthParameters: map[string]string{
			"USERNAME": username,
			"PASSWORD": password,
		},
	})
	if err != nil {
		var (
			notAuthorized *ctypes.NotAuthorizedException
			notFound      *ctypes.UserNotFoundException
			notConfirmed  *ctypes.UserNotConfirmedException
		)
		if errors.As(err, &notAuthorized) || errors.As(err, &notFound) || errors.As(err, &notConfirmed) {
			return nil, types.ErrUnauthenticated
		}
		return nil, fmt.Errorf("failed to initiate auth: %w", err)
	}

	if resp.AuthenticationResult == nil || resp.AuthenticationResult.AccessToken == nil {
		return nil, types.ErrUnauthenticated
	}

	return &Session{
		AccessToken: aws.ToString(resp.AuthenticationResult.AccessToken),
		ExpiresIn:   int(resp.AuthenticationResult.ExpiresIn),
	}, nil
}

func mapSignUpError(err error) error {
	var invalidPw *ctypes.InvalidPasswordException
	if errors.As(err, &invalidPw) {
		return types.NewValidationError("signup form is invalid").Add("password", "must include uppercase, lowercase, number and symbol")
	}

	var userExists *ctypes.UsernameExistsException
	if errors.As(err, &userExists) {
		return types.NewValidationError("signup form is invalid").Add("email", "an account with this email already exists")
	}

	var invalidParam *ctypes.InvalidParameterException
	if errors.As(err, &invalidParam) {
		return types.NewValidationError("signup form is invalid").Add("email", "is not accepted by the identity provider")
	}

	return fmt.Errorf("failed to sign up identity: %w", err)
}
